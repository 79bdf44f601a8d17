package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"

	"github.com/elonfeng/clubradar/pkg/club"
)

// EventFeed is an RSS/Atom feed of one club's events.
type EventFeed struct {
	ClubID int    `yaml:"club_id"`
	URL    string `yaml:"url"` // http(s) URL or local file path
}

// FeedReader turns RSS/Atom feeds into event records.
type FeedReader struct {
	client *http.Client
	parser *gofeed.Parser
}

// NewFeedReader creates a feed reader.
func NewFeedReader() *FeedReader {
	return &FeedReader{
		client: &http.Client{Timeout: 30 * time.Second},
		parser: gofeed.NewParser(),
	}
}

// Read fetches and parses one feed. Items become events owned by feed.ClubID:
// title as name, first category as type, published (or updated) date, and
// participants, duration_hours and impact_score from custom elements when present.
func (r *FeedReader) Read(ctx context.Context, feed EventFeed) ([]club.Event, error) {
	body, err := r.open(ctx, feed.URL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	parsed, err := r.parser.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feed.URL, err)
	}

	events := make([]club.Event, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		ev := club.Event{
			ClubID:      feed.ClubID,
			Name:        strings.TrimSpace(item.Title),
			Description: truncate(strings.TrimSpace(item.Description), 500),
		}
		if len(item.Categories) > 0 {
			ev.Type = item.Categories[0]
		}
		if item.PublishedParsed != nil {
			ev.Date = item.PublishedParsed.UTC().Format(time.DateOnly)
		} else if item.UpdatedParsed != nil {
			ev.Date = item.UpdatedParsed.UTC().Format(time.DateOnly)
		}
		if v, ok := customValue(item, "participants"); ok {
			ev.Participants, _ = strconv.Atoi(v)
		}
		if v, ok := customValue(item, "duration_hours"); ok {
			ev.DurationHours, _ = strconv.ParseFloat(v, 64)
		}
		if v, ok := customValue(item, "impact_score"); ok {
			ev.ImpactScore, _ = strconv.ParseFloat(v, 64)
		}
		events = append(events, ev)
	}
	return events, nil
}

func (r *FeedReader) open(ctx context.Context, location string) (io.ReadCloser, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("open feed %s: %w", location, err)
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request %s: %w", location, err)
	}
	req.Header.Set("User-Agent", "clubradar/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", location, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("feed %s status %d", location, resp.StatusCode)
	}
	return resp.Body, nil
}

// customValue looks a custom element up among plain and namespaced extensions.
func customValue(item *gofeed.Item, name string) (string, bool) {
	if v, ok := item.Custom[name]; ok {
		return strings.TrimSpace(v), true
	}
	for _, byName := range item.Extensions {
		if exts := byName[name]; len(exts) > 0 {
			return strings.TrimSpace(exts[0].Value), true
		}
	}
	return "", false
}

// truncate shortens s to at most maxLen bytes plus an ellipsis, cutting on a rune boundary.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
