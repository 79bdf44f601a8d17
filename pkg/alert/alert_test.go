package alert

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/clubradar/pkg/score"
)

func ranking() []score.Evaluation {
	return []score.Evaluation{
		{Rank: 1, ClubID: 4, ClubName: "Rhythm", Overall: 7.5},
		{Rank: 2, ClubID: 1, ClubName: "Coding Club", Overall: 7.25},
		{Rank: 3, ClubID: 2, ClubName: "Robotics", Overall: 3},
	}
}

func TestLeaderChange(t *testing.T) {
	n, ok := LeaderChange(11, "comprehensive", ranking(), 1, 2)
	require.True(t, ok)
	assert.Equal(t, 4, n.Leader.ClubID)
	require.NotNil(t, n.PreviousLeader)
	assert.Equal(t, "Coding Club", n.PreviousLeader.ClubName)
	assert.Len(t, n.Top, 2)
	assert.Contains(t, n.Body, "ahead of previous leader Coding Club")

	_, ok = LeaderChange(12, "comprehensive", ranking(), 4, 2)
	assert.False(t, ok)

	_, ok = LeaderChange(13, "comprehensive", nil, 0, 2)
	assert.False(t, ok)
}

func TestLeaderChangeFirstRun(t *testing.T) {
	n, ok := LeaderChange(1, "award", ranking(), 0, 0)
	require.True(t, ok)
	assert.Nil(t, n.PreviousLeader)
	assert.Len(t, n.Top, 3)
	assert.Equal(t, "Rhythm now leads the award ranking", n.Title)
}

func TestLeaderChangeUnknownPreviousLeader(t *testing.T) {
	n, ok := LeaderChange(1, "award", ranking(), 99, 1)
	require.True(t, ok)
	assert.Equal(t, "club 99", n.PreviousLeader.ClubName)
}

func capture(t *testing.T, status int) (*httptest.Server, *http.Header, *[]byte) {
	t.Helper()
	var got http.Header
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &got, &body
}

func testNotification(t *testing.T) *Notification {
	n, ok := LeaderChange(42, "comprehensive", ranking(), 1, 3)
	require.True(t, ok)
	return n
}

func TestWebhookSignsBody(t *testing.T) {
	srv, header, body := capture(t, http.StatusNoContent)

	require.NoError(t, NewWebhook(srv.URL, "s3cret").Send(context.Background(), testNotification(t)))
	assert.True(t, Verify("s3cret", *body, header.Get(SignatureHeader)))
	assert.False(t, Verify("other", *body, header.Get(SignatureHeader)))
	assert.Equal(t, EventLeaderChange, header.Get(EventHeader))

	var decoded Envelope
	require.NoError(t, json.Unmarshal(*body, &decoded))
	assert.Equal(t, EventLeaderChange, decoded.Event)
	assert.Equal(t, int64(42), decoded.RunID)
	require.NotNil(t, decoded.Data)
	assert.Equal(t, "Rhythm", decoded.Data.Leader.ClubName)
}

func TestWebhookUnsigned(t *testing.T) {
	srv, header, _ := capture(t, http.StatusOK)
	require.NoError(t, NewWebhook(srv.URL, "").Send(context.Background(), testNotification(t)))
	assert.Empty(t, header.Get(SignatureHeader))
}

func TestDiscord(t *testing.T) {
	srv, _, body := capture(t, http.StatusNoContent)
	require.NoError(t, NewDiscord(srv.URL).Send(context.Background(), testNotification(t)))

	var payload struct {
		Embeds []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"embeds"`
	}
	require.NoError(t, json.Unmarshal(*body, &payload))
	require.Len(t, payload.Embeds, 1)
	assert.Contains(t, payload.Embeds[0].Title, "Rhythm")
	assert.Contains(t, payload.Embeds[0].Description, "2. **Coding Club** 7.25")
}

func TestSlack(t *testing.T) {
	srv, _, body := capture(t, http.StatusOK)
	require.NoError(t, NewSlack(srv.URL).Send(context.Background(), testNotification(t)))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(*body, &payload))
	assert.Equal(t, "Rhythm now leads the comprehensive ranking", payload["text"])
	assert.NotEmpty(t, payload["blocks"])
}

func TestSendFailures(t *testing.T) {
	srv, _, _ := capture(t, http.StatusInternalServerError)
	n := testNotification(t)

	assert.Error(t, NewSlack(srv.URL).Send(context.Background(), n))
	assert.Error(t, NewDiscord(srv.URL).Send(context.Background(), n))
	assert.Error(t, NewWebhook(srv.URL, "").Send(context.Background(), n))
}

type stubNotifier struct {
	name string
	err  error
	sent int
}

func (s *stubNotifier) Name() string { return s.name }

func (s *stubNotifier) Send(context.Context, *Notification) error {
	s.sent++
	return s.err
}

func TestManagerBroadcast(t *testing.T) {
	ok := &stubNotifier{name: "ok"}
	bad := &stubNotifier{name: "bad", err: errors.New("boom")}
	m := NewManager([]Notifier{ok, bad})

	assert.True(t, m.HasNotifiers())
	err := m.Broadcast(context.Background(), testNotification(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: boom")
	assert.Equal(t, 1, ok.sent)
	assert.Equal(t, 1, bad.sent)

	var none *Manager
	assert.False(t, none.HasNotifiers())
	assert.NoError(t, none.Broadcast(context.Background(), testNotification(t)))
}
