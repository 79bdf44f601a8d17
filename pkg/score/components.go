package score

import (
	"github.com/elonfeng/clubradar/pkg/club"
	"github.com/elonfeng/clubradar/pkg/engagement"
	"github.com/elonfeng/clubradar/pkg/normalize"
)

// Inputs are the signals available for one club. Nil or empty fields are
// missing signals and score 0 on the axes that depend on them.
type Inputs struct {
	Club   club.Club
	Chat   *engagement.Metrics
	Social *normalize.SocialScore
	Events []club.Event
	Votes  *club.VoteTally
}

type calculator func(Inputs) float64

var calculators = map[Component]calculator{
	SocialMedia:         socialMedia,
	ChatEngagement:      chatEngagement,
	CombinedReach:       combinedReach,
	CommunityActivity:   communityActivity,
	ContentQuality:      contentQuality,
	EventImpact:         eventImpact,
	CommunityEngagement: communityEngagement,
	Collaboration:       collaboration,
	Voting:              voting,
}

// Compute returns the bounded value of one sub-score.
func Compute(c Component, in Inputs) float64 {
	fn, ok := calculators[c]
	if !ok {
		return 0
	}
	return normalize.Clamp(fn(in))
}

func socialMedia(in Inputs) float64 {
	if in.Social == nil {
		return 0
	}
	return in.Social.SocialScore
}

func chatEngagement(in Inputs) float64 {
	if in.Chat == nil {
		return 0
	}
	responseBonus := min(in.Chat.Responses.ResponseRatePercentage/100*2, 2)
	eventBonus := min(in.Chat.EventRatio()*10, 1)
	return in.Chat.EngagementScore + responseBonus + eventBonus
}

// combinedReach counts each active chat sender as two members of the audience.
func combinedReach(in Inputs) float64 {
	var reach int
	if in.Social != nil {
		reach += in.Social.TotalFollowers
	}
	if in.Chat != nil {
		reach += 2 * in.Chat.UniqueSenders
	}
	return min(float64(reach)/200, 10)
}

func communityActivity(in Inputs) float64 {
	if in.Chat == nil {
		return 0
	}
	return min(float64(in.Chat.TotalMessages)/200, 5) +
		min(float64(in.Chat.UniqueSenders)/20, 3) +
		min(float64(in.Chat.ActiveMonths())/6, 2)
}

func contentQuality(in Inputs) float64 {
	var s float64
	if in.Social != nil {
		s += in.Social.ContentBonus()
	}
	if in.Chat != nil {
		s += min(in.Chat.EventRatio()*30, 3)
		s += min(in.Chat.HelpCollabRatio()*20, 2)
	}
	return s
}

func eventImpact(in Inputs) float64 {
	if len(in.Events) == 0 {
		return 0
	}
	var total float64
	for _, e := range in.Events {
		impact := normalize.Clamp(e.ImpactScore)
		participation := min(float64(max(e.Participants, 0))/50, 10)
		duration := min(max(e.DurationHours, 0)/8, 10)
		total += impact*0.5 + participation*0.3 + duration*0.2
	}
	return total / float64(len(in.Events))
}

func communityEngagement(in Inputs) float64 {
	if in.Chat == nil {
		return 0
	}
	return in.Chat.EngagementScore
}

func collaboration(in Inputs) float64 {
	var events int
	for _, e := range in.Events {
		if e.Collaborative() {
			events++
		}
	}
	var messages int
	if in.Chat != nil {
		messages = in.Chat.Content.Collaboration
	}
	return (min(float64(events)*2, 10) + min(float64(messages)/5, 10)) / 2
}

// voting averages the club's vote share over categories; 2% of the vote in a category saturates it.
func voting(in Inputs) float64 {
	if in.Votes == nil || in.Votes.TotalVotes <= 0 || len(in.Votes.Categories) == 0 {
		return 0
	}
	var total float64
	for cat := range in.Votes.Categories {
		share := float64(in.Votes.Votes(cat, in.Club.ID)) / float64(in.Votes.TotalVotes) * 100
		total += min(share*2, 10)
	}
	return total / float64(len(in.Votes.Categories))
}
