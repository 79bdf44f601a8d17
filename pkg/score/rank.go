package score

import (
	"cmp"
	"math"
	"slices"

	"github.com/elonfeng/clubradar/pkg/normalize"
)

// Evaluation is one club's scored result.
type Evaluation struct {
	Rank      int                `json:"rank"`
	ClubID    int                `json:"club_id"`
	ClubName  string             `json:"club_name"`
	Overall   float64            `json:"overall_score"`
	SubScores map[string]float64 `json:"sub_scores"`
}

// Evaluate computes every sub-score of the model and their weighted sum.
// Values are rounded to two decimals after bounding.
func (m Model) Evaluate(in Inputs) Evaluation {
	ev := Evaluation{
		ClubID:    in.Club.ID,
		ClubName:  in.Club.Name,
		SubScores: make(map[string]float64, len(m.Weights)),
	}
	var overall float64
	for _, w := range m.Weights {
		v := Compute(w.Component, in)
		overall += v * w.Weight
		ev.SubScores[string(w.Component)] = round2(v)
	}
	ev.Overall = round2(normalize.Clamp(overall))
	return ev
}

// Rank evaluates every club and orders them by overall score, highest first.
// Equal scores are ordered by club id ascending. Rank is the 1-based position.
func (m Model) Rank(inputs []Inputs) []Evaluation {
	out := make([]Evaluation, len(inputs))
	for i, in := range inputs {
		out[i] = m.Evaluate(in)
	}
	Sort(out)
	return out
}

// Sort orders evaluations by overall score descending, then club id ascending, and renumbers ranks.
func Sort(evs []Evaluation) {
	slices.SortStableFunc(evs, func(a, b Evaluation) int {
		if c := cmp.Compare(b.Overall, a.Overall); c != 0 {
			return c
		}
		return cmp.Compare(a.ClubID, b.ClubID)
	})
	for i := range evs {
		evs[i].Rank = i + 1
	}
}

// Subset ranks only the clubs whose ids are in members, preserving the full ranking's order.
func Subset(ranking []Evaluation, members []int) []Evaluation {
	var out []Evaluation
	for _, ev := range ranking {
		if slices.Contains(members, ev.ClubID) {
			out = append(out, ev)
		}
	}
	Sort(out)
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
