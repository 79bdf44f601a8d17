// Package engagement derives behavioral metrics from parsed chat messages.
package engagement

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/elonfeng/clubradar/internal/logger"
	"github.com/elonfeng/clubradar/pkg/chat"
)

// ContentCounts are non-exclusive per-category message counts.
type ContentCounts struct {
	EventRelated       int `json:"event_related"`
	HelpRequests       int `json:"help_requests"`
	Collaboration      int `json:"collaboration"`
	PositiveEngagement int `json:"positive_engagement"`
}

// Activity holds the temporal histograms.
type Activity struct {
	Monthly map[string]int `json:"monthly"`
	Hourly  map[int]int    `json:"hourly"`
}

// SenderCount is one entry of the most-active list.
type SenderCount struct {
	Sender   string `json:"sender"`
	Messages int    `json:"messages"`
}

// SenderStats describes how messages spread over senders.
type SenderStats struct {
	Frequency    map[string]int `json:"frequency"`
	MostActive   []SenderCount  `json:"most_active"`
	Distribution Distribution   `json:"message_distribution"`
}

// DateRange spans the first and last message timestamps.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Metrics is the chat-derived record for one club.
type Metrics struct {
	ClubID               int              `json:"club_id"`
	ClubName             string           `json:"club_name"`
	TotalMessages        int              `json:"total_messages"`
	TotalLines           int              `json:"total_lines"`
	UniqueSenders        int              `json:"unique_senders"`
	AvgMessagesPerSender float64          `json:"avg_messages_per_sender"`
	Content              ContentCounts    `json:"content_analysis"`
	Activity             Activity         `json:"activity_analysis"`
	Senders              SenderStats      `json:"sender_stats"`
	Responses            ResponsePatterns `json:"response_patterns"`
	EngagementScore      float64          `json:"engagement_score"`
	DateRange            *DateRange       `json:"date_range,omitempty"`
}

// ActiveMonths is the number of distinct months with at least one message.
func (m Metrics) ActiveMonths() int {
	n := 0
	for _, c := range m.Activity.Monthly {
		if c > 0 {
			n++
		}
	}
	return n
}

// ratio returns n/total, or 0 for an empty log.
func (m Metrics) ratio(n int) float64 {
	if m.TotalMessages == 0 {
		return 0
	}
	return float64(n) / float64(m.TotalMessages)
}

// EventRatio is the share of messages that mention events.
func (m Metrics) EventRatio() float64 { return m.ratio(m.Content.EventRelated) }

// HelpCollabRatio is the share of help plus collaboration messages.
func (m Metrics) HelpCollabRatio() float64 {
	return m.ratio(m.Content.HelpRequests + m.Content.Collaboration)
}

// Empty returns the zero record used for missing or unreadable logs.
func Empty(clubID int, name string) Metrics {
	return Metrics{
		ClubID:   clubID,
		ClubName: name,
		Activity: Activity{Monthly: map[string]int{}, Hourly: map[int]int{}},
		Senders:  SenderStats{Frequency: map[string]int{}, MostActive: []SenderCount{}},
	}
}

// Score caps.
const (
	densityCap       = 3.0
	participationCap = 2.0
	contentCap       = 3.0
	volumeCap        = 2.0
	maxScore         = 10.0

	senderSaturation  = 20.0
	messageSaturation = 100.0
)

// Score is the composite engagement score in [0,10]. contentHits counts event,
// help and positive classifications; collaboration is reported but not scored.
func Score(messages, lines, senders, contentHits int) float64 {
	var density, content float64
	if lines > 0 {
		density = min(float64(messages)/float64(lines)*10, densityCap)
	}
	if messages > 0 {
		content = min(float64(contentHits)/float64(messages)*5, contentCap)
	}
	participation := min(float64(senders)/senderSaturation, participationCap)
	volume := min(float64(messages)/messageSaturation, volumeCap)
	return min(density+participation+content+volume, maxScore)
}

// Analyzer computes Metrics from chat logs.
type Analyzer struct {
	classifier *Classifier
}

// NewAnalyzer returns an analyzer. A nil classifier uses the default keywords.
func NewAnalyzer(c *Classifier) *Analyzer {
	if c == nil {
		c = NewClassifier(nil)
	}
	return &Analyzer{classifier: c}
}

// Analyze computes metrics for one club from its raw lines.
func (a *Analyzer) Analyze(clubID int, name string, lines []string) Metrics {
	m := Empty(clubID, name)
	m.TotalLines = len(lines)

	msgs := slices.Collect(chat.ParseLines(lines))
	if len(msgs) == 0 {
		return m
	}
	m.TotalMessages = len(msgs)

	var order []string
	start, end := msgs[0].Time, msgs[0].Time
	for _, msg := range msgs {
		if _, seen := m.Senders.Frequency[msg.Sender]; !seen {
			order = append(order, msg.Sender)
		}
		m.Senders.Frequency[msg.Sender]++

		lower := strings.ToLower(msg.Body)
		if a.classifier.Matches(CategoryEvent, lower) {
			m.Content.EventRelated++
		}
		if a.classifier.Matches(CategoryHelp, lower) {
			m.Content.HelpRequests++
		}
		if a.classifier.Matches(CategoryCollaboration, lower) {
			m.Content.Collaboration++
		}
		if a.classifier.Matches(CategoryPositive, lower) {
			m.Content.PositiveEngagement++
		}

		m.Activity.Monthly[msg.Time.Format("2006-01")]++
		m.Activity.Hourly[msg.Time.Hour()]++

		if msg.Time.Before(start) {
			start = msg.Time
		}
		if msg.Time.After(end) {
			end = msg.Time
		}
	}

	m.UniqueSenders = len(order)
	m.AvgMessagesPerSender = float64(m.TotalMessages) / float64(m.UniqueSenders)
	m.Senders.MostActive = mostActive(order, m.Senders.Frequency, 5)

	counts := make([]float64, len(order))
	for i, s := range order {
		counts[i] = float64(m.Senders.Frequency[s])
	}
	m.Senders.Distribution = describe(counts)

	m.Responses = analyzeResponses(msgs)
	m.DateRange = &DateRange{Start: start, End: end}
	m.EngagementScore = Score(m.TotalMessages, m.TotalLines, m.UniqueSenders,
		m.Content.EventRelated+m.Content.HelpRequests+m.Content.PositiveEngagement)
	return m
}

// mostActive returns the top n senders by count; ties keep first-appearance order.
func mostActive(order []string, freq map[string]int, n int) []SenderCount {
	out := make([]SenderCount, len(order))
	for i, s := range order {
		out[i] = SenderCount{Sender: s, Messages: freq[s]}
	}
	slices.SortStableFunc(out, func(a, b SenderCount) int {
		return cmp.Compare(b.Messages, a.Messages)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// AnalyzeFile reads and analyzes one chat file. If the file cannot be opened it
// returns the zero record; if reading fails part way it analyzes the lines read
// so far. Either way the error is returned so the caller can report it.
func (a *Analyzer) AnalyzeFile(clubID int, name, path string) (Metrics, error) {
	f, err := os.Open(path)
	if err != nil {
		return Empty(clubID, name), fmt.Errorf("open chat log %s: %w", path, err)
	}
	defer f.Close()

	lines, err := chat.ReadLines(f)
	if err != nil {
		return a.Analyze(clubID, name, lines), fmt.Errorf("read chat log %s: %w", path, err)
	}
	return a.Analyze(clubID, name, lines), nil
}

// ChatFile maps a chat export to the club it belongs to.
type ChatFile struct {
	ClubID   int
	ClubName string
	Path     string
}

// AnalyzeAll analyzes every file with at most workers in flight. A file that
// cannot be read yields a zero record and a warning; it never fails the batch.
// When several files name the same club the first one wins and the rest are
// logged and ignored. The only error returned is ctx's.
func (a *Analyzer) AnalyzeAll(ctx context.Context, files []ChatFile, workers int) (map[int]Metrics, error) {
	results := make([]Metrics, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, cf := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := a.AnalyzeFile(cf.ClubID, cf.ClubName, cf.Path)
			if err != nil {
				lctx := logger.WithLogFields(gctx, logger.LogFields{ClubID: logger.Ptr(cf.ClubID)})
				slog.WarnContext(lctx, "chat log unavailable, using zero metrics", "error", err)
			} else {
				slog.DebugContext(gctx, "chat analyzed",
					"club", cf.ClubName, "messages", m.TotalMessages, "engagement", m.EngagementScore)
			}
			results[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[int]Metrics, len(results))
	used := make(map[int]string, len(results))
	for i, m := range results {
		if first, dup := used[m.ClubID]; dup {
			lctx := logger.WithLogFields(ctx, logger.LogFields{ClubID: logger.Ptr(m.ClubID)})
			slog.WarnContext(lctx, "duplicate chat log for club ignored", "path", files[i].Path, "kept", first)
			continue
		}
		used[m.ClubID] = files[i].Path
		out[m.ClubID] = m
	}
	return out, nil
}
