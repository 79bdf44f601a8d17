// Package chat parses exported group-chat logs into structured messages.
package chat

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Message is a single parsed chat line.
type Message struct {
	Time   time.Time
	Sender string
	Body   string
}

// linePattern matches "d/m/yy[yy][,] h:mm[ am|pm] - sender: body".
// \x{202f} is the narrow no-break space some exports put before am/pm.
var linePattern = regexp.MustCompile(
	`^(\d{1,2})/(\d{1,2})/(\d{2}|\d{4}),?\s*(\d{1,2}):(\d{2})[\s\x{202f}]*([aApP][mM])?\s*-\s*([^:]+):\s*(.*)$`,
)

// byteOrderMark starts some exported files and would hide their first message.
const byteOrderMark = "\ufeff"

// ParseLine parses one raw line. ok is false for lines that do not match
// or carry out-of-range date or time components.
func ParseLine(line string) (Message, bool) {
	line = strings.TrimSpace(strings.TrimPrefix(line, byteOrderMark))
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return Message{}, false
	}

	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if len(m[3]) == 2 {
		year += 2000
	}
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])

	if !validDate(year, month, day) {
		return Message{}, false
	}
	hour, ok := clockHour(hour, strings.ToLower(m[6]))
	if !ok || minute > 59 {
		return Message{}, false
	}

	sender := strings.TrimSpace(m[7])
	if sender == "" {
		return Message{}, false
	}

	return Message{
		Time:   time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC),
		Sender: sender,
		Body:   strings.TrimSpace(m[8]),
	}, true
}

func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	// Day 0 of the next month is the last day of this one.
	last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return day <= last
}

// clockHour converts a 12-hour clock reading to 0-23. Without a marker the hour is already 24-hour.
func clockHour(hour int, marker string) (int, bool) {
	switch marker {
	case "":
		return hour, hour <= 23
	case "am", "pm":
		if hour < 1 || hour > 12 {
			return 0, false
		}
		hour %= 12
		if marker == "pm" {
			hour += 12
		}
		return hour, true
	}
	return 0, false
}

// Parse lazily converts raw lines into messages, dropping lines that fail to parse.
// The returned sequence can be ranged over again if lines can.
func Parse(lines iter.Seq[string]) iter.Seq[Message] {
	return func(yield func(Message) bool) {
		for line := range lines {
			msg, ok := ParseLine(line)
			if !ok {
				continue
			}
			if !yield(msg) {
				return
			}
		}
	}
}

// ParseLines is Parse over an in-memory slice of lines.
func ParseLines(lines []string) iter.Seq[Message] {
	return Parse(slices.Values(lines))
}

// maxLineSize bounds a single exported line. Longer lines are skipped.
const maxLineSize = 1 << 20

// ReadLines reads all lines from r, dropping a trailing "\r" from each.
// A line over maxLineSize is skipped rather than failing the read. On a read
// error the lines read so far are returned with the error.
func ReadLines(r io.Reader) ([]string, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	var (
		lines     []string
		buf       []byte
		pending   bool
		oversized bool
	)
	for {
		chunk, err := br.ReadSlice('\n')
		pending = pending || len(chunk) > 0
		if !oversized {
			if len(buf)+len(chunk) > maxLineSize+1 {
				oversized, buf = true, buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}

		if pending && !oversized {
			line := bytes.TrimSuffix(buf, []byte("\n"))
			lines = append(lines, string(bytes.TrimSuffix(line, []byte("\r"))))
		}
		buf, pending, oversized = buf[:0], false, false

		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return lines, nil
		default:
			return lines, fmt.Errorf("read chat lines: %w", err)
		}
	}
}
