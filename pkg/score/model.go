// Package score blends normalized signals into weighted per-club scores and rankings.
package score

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Component names a sub-score.
type Component string

const (
	SocialMedia         Component = "social_media"
	ChatEngagement      Component = "chat_engagement"
	CombinedReach       Component = "combined_reach"
	CommunityActivity   Component = "community_activity"
	ContentQuality      Component = "content_quality"
	EventImpact         Component = "event_impact"
	CommunityEngagement Component = "community_engagement"
	Collaboration       Component = "collaboration"
	Voting              Component = "voting"
)

// Model names.
const (
	ModelComprehensive = "comprehensive"
	ModelAward         = "award"
)

// weightTolerance is how far a weight table may drift from summing to 1.
const weightTolerance = 1e-6

var (
	ErrUnknownModel     = errors.New("unknown scoring model")
	ErrUnknownComponent = errors.New("unknown sub-score")
	ErrWeightSum        = errors.New("weights must sum to 1.0")
)

// Weight is one entry of a model's weight table.
type Weight struct {
	Component Component `json:"component"`
	Weight    float64   `json:"weight"`
}

// Model is a named, fixed weight table. Weights sum to 1.
type Model struct {
	Name    string   `json:"name"`
	Weights []Weight `json:"weights"`
}

// Comprehensive is the default model over social and chat signals.
func Comprehensive() Model {
	return Model{Name: ModelComprehensive, Weights: []Weight{
		{SocialMedia, 0.35},
		{ChatEngagement, 0.25},
		{CombinedReach, 0.20},
		{CommunityActivity, 0.15},
		{ContentQuality, 0.05},
	}}
}

// Award is the ranking-only view that folds in events and votes.
func Award() Model {
	return Model{Name: ModelAward, Weights: []Weight{
		{SocialMedia, 0.20},
		{EventImpact, 0.30},
		{CommunityEngagement, 0.25},
		{Collaboration, 0.15},
		{Voting, 0.10},
	}}
}

// Models lists the built-in model names.
func Models() []string { return []string{ModelComprehensive, ModelAward} }

// NewModel returns the named model with optional weight overrides applied.
// Overrides may only reweight components the model already has.
func NewModel(name string, overrides map[string]float64) (Model, error) {
	var m Model
	switch strings.ToLower(name) {
	case "", ModelComprehensive:
		m = Comprehensive()
	case ModelAward:
		m = Award()
	default:
		return Model{}, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}

	for k, w := range overrides {
		i := slices.IndexFunc(m.Weights, func(x Weight) bool { return string(x.Component) == k })
		if i < 0 {
			return Model{}, fmt.Errorf("model %s: %w: %q", m.Name, ErrUnknownComponent, k)
		}
		m.Weights[i].Weight = w
	}
	if err := m.Validate(); err != nil {
		return Model{}, err
	}
	return m, nil
}

// Validate checks that every component is known, appears once and that weights sum to 1.
func (m Model) Validate() error {
	seen := make(map[Component]bool, len(m.Weights))
	var sum float64
	for _, w := range m.Weights {
		if _, ok := calculators[w.Component]; !ok {
			return fmt.Errorf("model %s: %w: %q", m.Name, ErrUnknownComponent, w.Component)
		}
		if seen[w.Component] {
			return fmt.Errorf("model %s: duplicate sub-score %q", m.Name, w.Component)
		}
		if w.Weight < 0 || math.IsNaN(w.Weight) {
			return fmt.Errorf("model %s: negative weight for %q", m.Name, w.Component)
		}
		seen[w.Component] = true
		sum += w.Weight
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("model %s: %w (got %.6f)", m.Name, ErrWeightSum, sum)
	}
	return nil
}

// WeightMap returns the weights keyed by component name.
func (m Model) WeightMap() map[string]float64 {
	out := make(map[string]float64, len(m.Weights))
	for _, w := range m.Weights {
		out[string(w.Component)] = w.Weight
	}
	return out
}
