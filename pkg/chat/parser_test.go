package chat

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		ok     bool
		time   time.Time
		sender string
		body   string
	}{
		{
			name:   "four digit year 24h",
			line:   "15/03/2024, 14:05 - Asha: see you at the workshop",
			ok:     true,
			time:   time.Date(2024, 3, 15, 14, 5, 0, 0, time.UTC),
			sender: "Asha",
			body:   "see you at the workshop",
		},
		{
			name:   "two digit year pm",
			line:   "1/2/23, 9:30 pm - Ravi Kumar :  hello  ",
			ok:     true,
			time:   time.Date(2023, 2, 1, 21, 30, 0, 0, time.UTC),
			sender: "Ravi Kumar",
			body:   "hello",
		},
		{
			name:   "narrow no-break space before marker",
			line:   "1/2/23, 12:10\u202fAM - Ravi: late",
			ok:     true,
			time:   time.Date(2023, 2, 1, 0, 10, 0, 0, time.UTC),
			sender: "Ravi",
			body:   "late",
		},
		{
			name:   "noon",
			line:   "1/2/23, 12:00 pm - Ravi: lunch",
			ok:     true,
			time:   time.Date(2023, 2, 1, 12, 0, 0, 0, time.UTC),
			sender: "Ravi",
			body:   "lunch",
		},
		{
			name:   "leap day",
			line:   "29/2/24, 10:00 - Mia: leap",
			ok:     true,
			time:   time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC),
			sender: "Mia",
			body:   "leap",
		},
		{
			name:   "empty body allowed",
			line:   "29/2/24, 10:00 - Mia:",
			ok:     true,
			time:   time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC),
			sender: "Mia",
		},
		{
			name:   "leading byte order mark",
			line:   "\ufeff15/03/2024, 14:05 - Asha: first line of the export",
			ok:     true,
			time:   time.Date(2024, 3, 15, 14, 5, 0, 0, time.UTC),
			sender: "Asha",
			body:   "first line of the export",
		},
		{name: "not a leap year", line: "29/2/23, 10:00 - Mia: nope"},
		{name: "month out of range", line: "10/13/23, 10:00 - Mia: nope"},
		{name: "day zero", line: "0/1/23, 10:00 - Mia: nope"},
		{name: "hour out of range", line: "1/1/23, 24:00 - Mia: nope"},
		{name: "minute out of range", line: "1/1/23, 10:60 - Mia: nope"},
		{name: "13 pm", line: "1/1/23, 13:00 pm - Mia: nope"},
		{name: "system line", line: "1/1/23, 10:00 - Messages are end-to-end encrypted"},
		{name: "blank sender", line: "1/1/23, 10:00 -   : hi"},
		{name: "continuation line", line: "and this continues the previous message"},
		{name: "empty", line: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := ParseLine(tt.line)
			require.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.time, msg.Time)
			assert.Equal(t, tt.sender, msg.Sender)
			assert.Equal(t, tt.body, msg.Body)
		})
	}
}

func TestParsePreservesOrderAndSkipsBadLines(t *testing.T) {
	lines := []string{
		"2/1/24, 10:00 - B: second by time",
		"garbage",
		"1/1/24, 09:00 - A: first by time",
		"31/4/24, 09:00 - A: bad date",
	}

	var senders []string
	for msg := range ParseLines(lines) {
		senders = append(senders, msg.Sender)
	}
	assert.Equal(t, []string{"B", "A"}, senders)
}

func TestParseIsRestartable(t *testing.T) {
	seq := ParseLines([]string{
		"1/1/24, 09:00 - A: one",
		"1/1/24, 09:01 - B: two",
	})
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Len(t, first, 2)
	assert.Equal(t, first, second)
}

func TestParseStopsEarly(t *testing.T) {
	seq := ParseLines([]string{
		"1/1/24, 09:00 - A: one",
		"1/1/24, 09:01 - B: two",
		"1/1/24, 09:02 - C: three",
	})
	n := 0
	for range seq {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestReadLines(t *testing.T) {
	lines, err := ReadLines(strings.NewReader("a\nb\n\nc"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "", "c"}, lines)

	long := strings.Repeat("x", 200_000)
	lines, err = ReadLines(strings.NewReader(long + "\n"))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Len(t, lines[0], 200_000)
}

func TestReadLinesSkipsOversizedLine(t *testing.T) {
	input := strings.Join([]string{
		"1/1/24, 09:00 - A: one",
		"1/1/24, 09:01 - B: two",
		"1/1/24, 09:02 - C: " + strings.Repeat("x", 2<<20),
		"1/1/24, 09:03 - D: four\r",
	}, "\n")

	lines, err := ReadLines(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"1/1/24, 09:00 - A: one",
		"1/1/24, 09:01 - B: two",
		"1/1/24, 09:03 - D: four",
	}, lines)
	assert.Len(t, slices.Collect(ParseLines(lines)), 3)
}

type failingReader struct {
	data []byte
	done bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, errors.New("disk gone")
	}
	r.done = true
	return copy(p, r.data), nil
}

func TestReadLinesKeepsLinesBeforeError(t *testing.T) {
	lines, err := ReadLines(&failingReader{data: []byte("a\nb\n")})
	require.Error(t, err)
	assert.Equal(t, []string{"a", "b"}, lines)
}
