package source

import (
	"errors"
	"fmt"
)

// Loading stages.
const (
	StageClubs  = "clubs"
	StageEvents = "events"
	StageVotes  = "votes"
	StageSocial = "social"
	StageFeeds  = "feeds"
)

var (
	// ErrMissing means a source file does not exist.
	ErrMissing = errors.New("source missing")
	// ErrMalformed means a source exists but could not be parsed.
	ErrMalformed = errors.New("source malformed")
)

// StageError is a structural failure of one loading stage. The stage still
// yields an empty collection so later stages run with zero signal.
type StageError struct {
	Stage string
	Path  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("load %s from %s: %v", e.Stage, e.Path, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
