// Package source loads the input files of one evaluation run into an immutable snapshot.
package source

import (
	"context"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"time"

	"github.com/elonfeng/clubradar/internal/logger"
	"github.com/elonfeng/clubradar/pkg/club"
	"github.com/elonfeng/clubradar/pkg/engagement"
)

// Paths locates the input files.
type Paths struct {
	Dir        string
	ClubsFile  string
	EventsFile string
	VotesFile  string
	SocialFile string
	ChatDir    string
	// ChatFiles maps a chat export file name under ChatDir to its club id.
	ChatFiles  map[string]int
	EventFeeds []EventFeed
}

// DefaultChatFiles is the chat export mapping of the original deployment.
func DefaultChatFiles() map[string]int {
	return map[string]int{
		"SNUC Coding Club_chat.txt":        1,
		"Potential Robotics Club_chat.txt": 2,
		"SSN-SNUC MUN_chat.txt":            3,
		"SNUC Rhythm_chat.txt":             4,
		"Isai_chat.txt":                    5,
		"Montage_chat.txt":                 6,
	}
}

// DefaultPaths returns the standard file names under dir.
func DefaultPaths(dir string) Paths {
	return Paths{
		Dir:        dir,
		ClubsFile:  "clubs.json",
		EventsFile: "events.json",
		VotesFile:  "voting_data.json",
		SocialFile: "social_media_data.json",
		ChatDir:    "chat",
		ChatFiles:  DefaultChatFiles(),
	}
}

func (p Paths) resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.Dir, name)
}

// Snapshot is the read-only input of one run.
type Snapshot struct {
	Clubs     *club.Directory
	Events    []club.Event
	Votes     *club.VoteTally
	Social    map[string]club.SocialRecord
	ChatFiles []engagement.ChatFile
	Warnings  []error
	LoadedAt  time.Time
}

// Load reads every source. Stage failures are collected as warnings and the
// affected collections stay empty; Load itself never fails.
func Load(ctx context.Context, p Paths, feeds *FeedReader) *Snapshot {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "source"})
	s := &Snapshot{LoadedAt: time.Now().UTC()}

	warn := func(err error) {
		if err == nil {
			return
		}
		s.Warnings = append(s.Warnings, err)
		slog.WarnContext(ctx, "source stage degraded", "error", err)
	}

	clubs, err := LoadClubs(p.resolve(p.ClubsFile))
	warn(err)
	s.Clubs = club.NewDirectory(clubs)

	s.Events, err = LoadEvents(p.resolve(p.EventsFile))
	warn(err)

	s.Votes, err = LoadVotes(p.resolve(p.VotesFile))
	warn(err)

	s.Social, err = LoadSocial(p.resolve(p.SocialFile))
	warn(err)

	if feeds != nil && len(p.EventFeeds) > 0 {
		nextID := 0
		for _, e := range s.Events {
			nextID = max(nextID, e.ID)
		}
		for _, f := range p.EventFeeds {
			events, err := feeds.Read(ctx, f)
			if err != nil {
				warn(&StageError{Stage: StageFeeds, Path: f.URL, Err: err})
				continue
			}
			for _, e := range events {
				nextID++
				e.ID = nextID
				s.Events = append(s.Events, e)
			}
		}
	}

	chatDir := p.resolve(p.ChatDir)
	for _, name := range slices.Sorted(maps.Keys(p.ChatFiles)) {
		id := p.ChatFiles[name]
		clubName := name
		if c, ok := s.Clubs.Get(id); ok {
			clubName = c.Name
		}
		s.ChatFiles = append(s.ChatFiles, engagement.ChatFile{
			ClubID:   id,
			ClubName: clubName,
			Path:     filepath.Join(chatDir, name),
		})
	}

	slog.InfoContext(ctx, "sources loaded",
		"clubs", s.Clubs.Len(), "events", len(s.Events), "social", len(s.Social),
		"chats", len(s.ChatFiles), "warnings", len(s.Warnings))
	return s
}

// EventsFor returns the events hosted by a club.
func (s *Snapshot) EventsFor(clubID int) []club.Event {
	var out []club.Event
	for _, e := range s.Events {
		if e.ClubID == clubID {
			out = append(out, e)
		}
	}
	return out
}

// SocialFor returns a club's scraped record, or nil when the snapshot has none.
func (s *Snapshot) SocialFor(clubID int) *club.SocialRecord {
	rec, ok := s.Social[club.Key(clubID)]
	if !ok {
		return nil
	}
	return &rec
}
