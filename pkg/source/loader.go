package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/elonfeng/clubradar/pkg/club"
)

// readJSON decodes path into v, classifying failures as ErrMissing or ErrMalformed.
func readJSON(stage, path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &StageError{Stage: stage, Path: path, Err: ErrMissing}
	}
	if err != nil {
		return &StageError{Stage: stage, Path: path, Err: fmt.Errorf("%w: %w", ErrMalformed, err)}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &StageError{Stage: stage, Path: path, Err: fmt.Errorf("%w: %w", ErrMalformed, err)}
	}
	return nil
}

// LoadClubs reads {"clubs": [...]}.
func LoadClubs(path string) ([]club.Club, error) {
	var doc struct {
		Clubs []club.Club `json:"clubs"`
	}
	if err := readJSON(StageClubs, path, &doc); err != nil {
		return []club.Club{}, err
	}
	if doc.Clubs == nil {
		return []club.Club{}, &StageError{Stage: StageClubs, Path: path, Err: fmt.Errorf("%w: no clubs array", ErrMalformed)}
	}
	return doc.Clubs, nil
}

// LoadEvents reads {"events": [...]}.
func LoadEvents(path string) ([]club.Event, error) {
	var doc struct {
		Events []club.Event `json:"events"`
	}
	if err := readJSON(StageEvents, path, &doc); err != nil {
		return []club.Event{}, err
	}
	if doc.Events == nil {
		doc.Events = []club.Event{}
	}
	return doc.Events, nil
}

// LoadVotes reads {"vote_summary": {...}}. A file without a summary yields nil.
func LoadVotes(path string) (*club.VoteTally, error) {
	var doc struct {
		Summary *club.VoteTally `json:"vote_summary"`
	}
	if err := readJSON(StageVotes, path, &doc); err != nil {
		return nil, err
	}
	return doc.Summary, nil
}

// LoadSocial reads the scraped snapshot keyed by "club_<id>".
func LoadSocial(path string) (map[string]club.SocialRecord, error) {
	doc := map[string]club.SocialRecord{}
	if err := readJSON(StageSocial, path, &doc); err != nil {
		return map[string]club.SocialRecord{}, err
	}
	return doc, nil
}
