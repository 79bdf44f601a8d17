package engagement

import (
	"maps"
	"slices"
)

// Summary is a cross-club statistic for one metric.
type Summary struct {
	Average float64 `json:"average"`
	Median  float64 `json:"median"`
	Std     float64 `json:"std"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Comparison keys.
const (
	CompareMessages   = "total_messages"
	CompareSenders    = "unique_senders"
	CompareEngagement = "engagement_scores"
	CompareEvents     = "event_related"
	CompareResponse   = "response_rates"
)

// Compare summarizes metrics across clubs. It returns an empty map for no input.
func Compare(metrics map[int]Metrics) map[string]Summary {
	out := make(map[string]Summary)
	if len(metrics) == 0 {
		return out
	}

	series := map[string][]float64{}
	for _, id := range slices.Sorted(maps.Keys(metrics)) {
		m := metrics[id]
		series[CompareMessages] = append(series[CompareMessages], float64(m.TotalMessages))
		series[CompareSenders] = append(series[CompareSenders], float64(m.UniqueSenders))
		series[CompareEngagement] = append(series[CompareEngagement], m.EngagementScore)
		series[CompareEvents] = append(series[CompareEvents], float64(m.Content.EventRelated))
		series[CompareResponse] = append(series[CompareResponse], m.Responses.ResponseRatePercentage)
	}

	for name, xs := range series {
		d := describe(xs)
		out[name] = Summary{
			Average: d.Avg,
			Median:  d.Median,
			Std:     d.Std,
			Min:     slices.Min(xs),
			Max:     slices.Max(xs),
		}
	}
	return out
}
