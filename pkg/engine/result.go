package engine

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/elonfeng/clubradar/internal/store"
	"github.com/elonfeng/clubradar/pkg/club"
	"github.com/elonfeng/clubradar/pkg/engagement"
	"github.com/elonfeng/clubradar/pkg/grouping"
	"github.com/elonfeng/clubradar/pkg/normalize"
	"github.com/elonfeng/clubradar/pkg/score"
	"github.com/elonfeng/clubradar/pkg/source"
)

var (
	ErrClubNotFound  = errors.New("club not found")
	ErrGroupNotFound = errors.New("group not found")
)

// dashboardTop is how many leaders the dashboard lists.
const dashboardTop = 5

// Result is the immutable outcome of one run. Query methods never mutate it
// and are safe for concurrent use.
type Result struct {
	RunID      int64
	Model      score.Model
	StartedAt  time.Time
	FinishedAt time.Time
	Warnings   []string

	snap     *source.Snapshot
	grouper  *grouping.Grouper
	chat     map[int]engagement.Metrics
	social   map[int]normalize.SocialScore
	inputs   []score.Inputs
	ranking  []score.Evaluation
	groups   []grouping.Group
	clusters []grouping.Group
}

func (r *Result) inputsFor(c club.Club) score.Inputs {
	in := score.Inputs{Club: c, Events: r.snap.EventsFor(c.ID), Votes: r.snap.Votes}
	if m, ok := r.chat[c.ID]; ok {
		in.Chat = &m
	}
	if s, ok := r.social[c.ID]; ok {
		in.Social = &s
	}
	return in
}

// Clubs returns every club descriptor in input order.
func (r *Result) Clubs() []club.Club { return r.snap.Clubs.All() }

// Club returns one club descriptor.
func (r *Result) Club(id int) (club.Club, bool) { return r.snap.Clubs.Get(id) }

// ClubsByCategory returns the clubs of one category.
func (r *Result) ClubsByCategory(category string) []club.Club {
	return r.snap.Clubs.ByCategory(category)
}

// ClubsByActivity returns clubs that list the activity tag.
func (r *Result) ClubsByActivity(activity string) []club.Club { return r.snap.Clubs.ByActivity(activity) }

// SearchClubs matches a keyword against names, descriptions and tags.
func (r *Result) SearchClubs(keyword string) []club.Club { return r.snap.Clubs.Search(keyword) }

// Statistics summarizes the club set.
func (r *Result) Statistics() club.Statistics { return r.snap.Clubs.Statistics() }

// Rankings returns the ranking of the run's model.
func (r *Result) Rankings() []score.Evaluation { return slices.Clone(r.ranking) }

// RankWith ranks the same inputs with another model.
func (r *Result) RankWith(m score.Model) []score.Evaluation {
	if m.Name == r.Model.Name && len(m.Weights) == len(r.Model.Weights) {
		if maps.Equal(m.WeightMap(), r.Model.WeightMap()) {
			return r.Rankings()
		}
	}
	return m.Rank(r.inputs)
}

// Leader returns the top-ranked evaluation.
func (r *Result) Leader() (score.Evaluation, bool) {
	if len(r.ranking) == 0 {
		return score.Evaluation{}, false
	}
	return r.ranking[0], true
}

// Evaluation returns one club's evaluation.
func (r *Result) Evaluation(id int) (score.Evaluation, bool) {
	i := slices.IndexFunc(r.ranking, func(ev score.Evaluation) bool { return ev.ClubID == id })
	if i < 0 {
		return score.Evaluation{}, false
	}
	return r.ranking[i], true
}

// Groups returns the rule-based grouping.
func (r *Result) Groups() []grouping.Group { return slices.Clone(r.groups) }

// Clusters returns the diagnostic text clusters.
func (r *Result) Clusters() []grouping.Group { return slices.Clone(r.clusters) }

// GroupRankings ranks the members of a named group against each other.
func (r *Result) GroupRankings(name string) ([]score.Evaluation, error) {
	g, ok := grouping.Find(r.groups, name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrGroupNotFound, name)
	}
	return score.Subset(r.ranking, g.ClubIDs), nil
}

// SimilarClubs returns the clubs similar to the given one.
func (r *Result) SimilarClubs(id int) ([]club.Club, error) {
	target, ok := r.Club(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrClubNotFound, id)
	}
	return r.grouper.Similar(target, r.Clubs()), nil
}

// ChatMetrics returns every analyzed chat keyed by club id.
func (r *Result) ChatMetrics() map[int]engagement.Metrics { return maps.Clone(r.chat) }

// SocialScores returns every normalized social record keyed by club id.
func (r *Result) SocialScores() map[int]normalize.SocialScore { return maps.Clone(r.social) }

// EventSummary aggregates a club's events.
type EventSummary struct {
	Total          int     `json:"total_events"`
	Participants   int     `json:"total_participants"`
	AvgImpact      float64 `json:"avg_impact_score"`
	Collaborations int     `json:"collaborative_events"`
}

func summarizeEvents(events []club.Event) EventSummary {
	s := EventSummary{Total: len(events)}
	if len(events) == 0 {
		return s
	}
	var impact float64
	for _, e := range events {
		s.Participants += e.Participants
		impact += e.ImpactScore
		if e.Collaborative() {
			s.Collaborations++
		}
	}
	s.AvgImpact = impact / float64(len(events))
	return s
}

// Analytics is everything known about one club.
type Analytics struct {
	Club            club.Club              `json:"club"`
	Evaluation      score.Evaluation       `json:"evaluation"`
	Chat            *engagement.Metrics    `json:"chat_metrics,omitempty"`
	Social          *normalize.SocialScore `json:"social_metrics,omitempty"`
	Profile         *club.SocialRecord     `json:"social_profile,omitempty"`
	Events          []club.Event           `json:"events"`
	EventSummary    EventSummary           `json:"event_summary"`
	Votes           map[string]int         `json:"votes"`
	Group           string                 `json:"group,omitempty"`
	Recommendations []string               `json:"recommendations"`
}

// Analytics returns the detail view of one club.
func (r *Result) Analytics(id int) (*Analytics, error) {
	c, ok := r.Club(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrClubNotFound, id)
	}
	in := r.inputsFor(c)
	ev, _ := r.Evaluation(id)

	a := &Analytics{
		Club:            c,
		Evaluation:      ev,
		Chat:            in.Chat,
		Social:          in.Social,
		Profile:         r.snap.SocialFor(id),
		Events:          in.Events,
		EventSummary:    summarizeEvents(in.Events),
		Votes:           map[string]int{},
		Recommendations: r.Model.Recommendations(ev, in.Social),
	}
	if a.Events == nil {
		a.Events = []club.Event{}
	}
	if r.snap.Votes != nil {
		for cat := range r.snap.Votes.Categories {
			a.Votes[cat] = r.snap.Votes.Votes(cat, id)
		}
	}
	for _, g := range r.groups {
		if slices.Contains(g.ClubIDs, id) {
			a.Group = g.Name
			break
		}
	}
	return a, nil
}

// GroupSummary is a group's line on the dashboard.
type GroupSummary struct {
	Name       string  `json:"group_name"`
	Size       int     `json:"size"`
	Similarity float64 `json:"similarity_score"`
	Leader     string  `json:"leader,omitempty"`
}

// Dashboard is the run overview.
type Dashboard struct {
	RunID          int64                         `json:"run_id,string"`
	Model          string                        `json:"model"`
	GeneratedAt    time.Time                     `json:"generated_at"`
	Statistics     club.Statistics               `json:"statistics"`
	TopClubs       []score.Evaluation            `json:"top_clubs"`
	Groups         []GroupSummary                `json:"groups"`
	ChatComparison map[string]engagement.Summary `json:"chat_comparison"`
	TotalEvents    int                           `json:"total_events"`
	TotalVotes     int                           `json:"total_votes"`
	Warnings       []string                      `json:"warnings"`
}

// Dashboard summarizes the run.
func (r *Result) Dashboard() Dashboard {
	d := Dashboard{
		RunID:          r.RunID,
		Model:          r.Model.Name,
		GeneratedAt:    r.FinishedAt,
		Statistics:     r.Statistics(),
		TopClubs:       slices.Clone(r.ranking[:min(dashboardTop, len(r.ranking))]),
		Groups:         make([]GroupSummary, 0, len(r.groups)),
		ChatComparison: engagement.Compare(r.chat),
		TotalEvents:    len(r.snap.Events),
		Warnings:       slices.Clone(r.Warnings),
	}
	if r.snap.Votes != nil {
		d.TotalVotes = r.snap.Votes.TotalVotes
	}
	if d.Warnings == nil {
		d.Warnings = []string{}
	}
	for _, g := range r.groups {
		gs := GroupSummary{Name: g.Name, Size: len(g.ClubIDs), Similarity: g.Similarity}
		if sub := score.Subset(r.ranking, g.ClubIDs); len(sub) > 0 {
			gs.Leader = sub[0].ClubName
		}
		d.Groups = append(d.Groups, gs)
	}
	return d
}

// Record converts the result into a persisted run.
func (r *Result) Record() *store.Run {
	run := &store.Run{
		ID:         r.RunID,
		Model:      r.Model.Name,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		ClubCount:  len(r.ranking),
		GroupCount: len(r.groups),
		Warnings:   slices.Clone(r.Warnings),
		Rankings:   r.Rankings(),
		Groups:     r.Groups(),
		Clusters:   r.Clusters(),
		Chat:       r.ChatMetrics(),
	}
	if leader, ok := r.Leader(); ok {
		run.LeaderClubID = leader.ClubID
	}
	return run
}
