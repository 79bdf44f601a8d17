// Package alert announces ranking changes to chat and webhook destinations.
package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/elonfeng/clubradar/pkg/score"
)

// DefaultTop is how many standings a notification carries by default.
const DefaultTop = 5

// Standing is one line of the ranking in a notification.
type Standing struct {
	Rank     int     `json:"rank"`
	ClubID   int     `json:"club_id"`
	ClubName string  `json:"club_name"`
	Score    float64 `json:"overall_score"`
}

// Notification is the data sent to alert destinations.
type Notification struct {
	Title          string     `json:"title"`
	Body           string     `json:"body"`
	RunID          int64      `json:"run_id,string"`
	Model          string     `json:"model"`
	Leader         Standing   `json:"leader"`
	PreviousLeader *Standing  `json:"previous_leader,omitempty"`
	Top            []Standing `json:"top"`
	GeneratedAt    time.Time  `json:"generated_at"`
}

// LeaderChange builds a notification when ranking's leader differs from the
// leader of the previous run. previousLeader is 0 when there was no previous
// run, which counts as a change. ok is false when nothing changed or the ranking is empty.
func LeaderChange(runID int64, model string, ranking []score.Evaluation, previousLeader, top int) (n *Notification, ok bool) {
	if len(ranking) == 0 || ranking[0].ClubID == previousLeader {
		return nil, false
	}
	if top <= 0 {
		top = DefaultTop
	}

	n = &Notification{
		RunID:       runID,
		Model:       model,
		Leader:      standing(ranking[0]),
		GeneratedAt: time.Now().UTC(),
	}
	for _, ev := range ranking[:min(top, len(ranking))] {
		n.Top = append(n.Top, standing(ev))
	}

	n.Title = fmt.Sprintf("%s now leads the %s ranking", n.Leader.ClubName, model)
	n.Body = fmt.Sprintf("%s takes first place with %.2f.", n.Leader.ClubName, n.Leader.Score)
	if previousLeader != 0 {
		prev := Standing{ClubID: previousLeader, ClubName: fmt.Sprintf("club %d", previousLeader)}
		for _, ev := range ranking {
			if ev.ClubID == previousLeader {
				prev = standing(ev)
				break
			}
		}
		n.PreviousLeader = &prev
		n.Body = fmt.Sprintf("%s takes first place with %.2f, ahead of previous leader %s.",
			n.Leader.ClubName, n.Leader.Score, prev.ClubName)
	}
	return n, true
}

func standing(ev score.Evaluation) Standing {
	return Standing{Rank: ev.Rank, ClubID: ev.ClubID, ClubName: ev.ClubName, Score: ev.Overall}
}

// Notifier delivers alerts to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Manager broadcasts notifications to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new alert manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return m != nil && len(m.notifiers) > 0
}

// Broadcast sends a notification to every notifier and joins their errors.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}
