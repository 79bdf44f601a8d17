package engagement

import (
	"time"

	"github.com/elonfeng/clubradar/pkg/chat"
)

const (
	// responseLookahead is how many following messages are scanned for an answer.
	responseLookahead = 5
	responseWindow    = 2 * time.Hour
)

// ResponsePatterns summarizes how quickly questions get answered.
type ResponsePatterns struct {
	TotalQuestions         int     `json:"total_questions"`
	QuickResponses         int     `json:"quick_responses"`
	ResponseRatePercentage float64 `json:"response_rate_percentage"`
	AvgResponseTimeMinutes float64 `json:"avg_response_time_minutes"`
}

// analyzeResponses scans at most responseLookahead messages after each question.
// The first message from someone else ends the scan and counts when it arrives
// within responseWindow. Out-of-order timestamps (negative delay) never count.
func analyzeResponses(msgs []chat.Message) ResponsePatterns {
	var (
		p         ResponsePatterns
		latencies []float64
	)
	for i, q := range msgs {
		if !IsQuestion(q.Body) {
			continue
		}
		p.TotalQuestions++

		end := min(i+1+responseLookahead, len(msgs))
		for j := i + 1; j < end; j++ {
			if msgs[j].Sender == q.Sender {
				continue
			}
			dt := msgs[j].Time.Sub(q.Time)
			if dt >= 0 && dt < responseWindow {
				p.QuickResponses++
				latencies = append(latencies, dt.Minutes())
			}
			break
		}
	}
	if p.TotalQuestions > 0 {
		p.ResponseRatePercentage = float64(p.QuickResponses) / float64(p.TotalQuestions) * 100
	}
	p.AvgResponseTimeMinutes = mean(latencies)
	return p
}
