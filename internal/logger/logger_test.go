package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestWithLogFieldsMerges(t *testing.T) {
	ctx := WithLogFields(context.Background(), LogFields{RunID: Ptr(int64(7)), Stage: "chat"})
	ctx = WithLogFields(ctx, LogFields{ClubID: Ptr(3)})
	ctx = WithLogFields(ctx, LogFields{Stage: "rank"})

	f := GetLogFields(ctx)
	require.NotNil(t, f.RunID)
	require.NotNil(t, f.ClubID)
	assert.Equal(t, int64(7), *f.RunID)
	assert.Equal(t, 3, *f.ClubID)
	assert.Equal(t, "rank", f.Stage)
}

func TestTraceHandlerAddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "debug", Format: "json", Output: &buf})

	ctx := WithLogFields(context.Background(), LogFields{RunID: Ptr(int64(42)), ClubID: Ptr(5), Stage: "chat"})
	log.InfoContext(ctx, "analyzed")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "analyzed", rec["msg"])
	assert.EqualValues(t, 42, rec["run_id"])
	assert.EqualValues(t, 5, rec["club_id"])
	assert.Equal(t, "chat", rec["stage"])
	assert.NotContains(t, rec, "trace_id")
}

func TestStartSpanWithoutProvider(t *testing.T) {
	sc := StartSpan(context.Background(), "test")
	sc.RecordError(assert.AnError)
	sc.End()
	sc.End()
	assert.NotNil(t, sc.Context())
}
