package score

import "github.com/elonfeng/clubradar/pkg/normalize"

// recommendThreshold is the sub-score below which advice is given.
const recommendThreshold = 5.0

// minInstagramFollowers triggers the instagram growth advice.
const minInstagramFollowers = 500

var advice = map[Component]string{
	SocialMedia:         "Improve social media presence by posting more regularly and engaging with followers",
	ChatEngagement:      "Increase group chat engagement by organizing more discussions and responding to members",
	CombinedReach:       "Focus on growing follower base across all platforms",
	CommunityActivity:   "Encourage more community participation and regular communication",
	ContentQuality:      "Improve content quality by sharing more event-related and educational content",
	EventImpact:         "Run higher-impact events with more participants",
	CommunityEngagement: "Keep members talking between events",
	Collaboration:       "Co-host events with other clubs",
	Voting:              "Encourage members to take part in the campus survey",
}

// Recommendations returns advice for each weak sub-score in model order.
func (m Model) Recommendations(ev Evaluation, social *normalize.SocialScore) []string {
	out := []string{}
	for _, w := range m.Weights {
		if ev.SubScores[string(w.Component)] < recommendThreshold {
			out = append(out, advice[w.Component])
		}
	}
	if social != nil {
		if ig, ok := social.Platforms[normalize.Instagram]; ok && ig.Followers < minInstagramFollowers {
			out = append(out, "Focus on Instagram growth through consistent posting and community engagement")
		}
	}
	return out
}
