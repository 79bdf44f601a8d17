// Package grouping clusters clubs by the similarity of their descriptors.
package grouping

import (
	"strings"

	"github.com/elonfeng/clubradar/pkg/club"
)

// CatchAllName is the residual group for clubs no rule matches.
const CatchAllName = "Miscellaneous"

const (
	catchAllDescription = "Clubs with unique characteristics that don't fit other categories"
	catchAllSimilarity  = 0.5
)

// Rule is a named keyword category.
type Rule struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Categories  []string `yaml:"categories" json:"categories"`
	Keywords    []string `yaml:"keywords" json:"keywords"`
}

// DefaultRules are the built-in categories, in match order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:        "Technical & Innovation",
			Description: "Clubs focused on technology, programming, and technical innovation",
			Categories:  []string{"technical"},
			Keywords:    []string{"coding", "programming", "technology", "software", "robotics", "automation", "electronics", "iot"},
		},
		{
			Name:        "Performing Arts",
			Description: "Clubs dedicated to music, dance, and live performances",
			Categories:  []string{"performing_arts"},
			Keywords:    []string{"dance", "music", "performance", "singing", "instruments", "choreography"},
		},
		{
			Name:        "Creative & Visual Arts",
			Description: "Clubs focused on visual arts, photography, and creative expression",
			Categories:  []string{"creative_arts"},
			Keywords:    []string{"photography", "videography", "visual", "creativity", "editing", "storytelling"},
		},
		{
			Name:        "Leadership & Communication",
			Description: "Clubs emphasizing leadership, debate, and communication skills",
			Categories:  []string{"debate_discussion"},
			Keywords:    []string{"debate", "public speaking", "leadership", "diplomacy", "communication"},
		},
	}
}

// Group is a named set of clubs.
type Group struct {
	Name        string  `json:"group_name"`
	Description string  `json:"description"`
	ClubIDs     []int   `json:"club_ids"`
	Similarity  float64 `json:"similarity_score"`
}

// tags returns a club's keyword and activity tags, lowercased.
func tags(c club.Club) []string {
	out := make([]string, 0, len(c.Keywords)+len(c.Activities))
	for _, t := range c.Keywords {
		out = append(out, strings.ToLower(t))
	}
	for _, t := range c.Activities {
		out = append(out, strings.ToLower(t))
	}
	return out
}

// keywordHits counts rule keywords that occur inside any of the tags.
func (r Rule) keywordHits(tags []string) int {
	n := 0
	for _, kw := range r.Keywords {
		kw = strings.ToLower(kw)
		for _, t := range tags {
			if strings.Contains(t, kw) {
				n++
				break
			}
		}
	}
	return n
}

// Matches reports whether the club's category is one of the rule's, or a rule
// keyword is a substring of one of its tags.
func (r Rule) Matches(c club.Club) bool {
	for _, cat := range r.Categories {
		if strings.EqualFold(cat, c.Category) {
			return true
		}
	}
	return r.keywordHits(tags(c)) > 0
}

// GroupByRules assigns every club to the first rule it matches. Unmatched clubs
// go to the catch-all group. Empty groups are dropped, so the result partitions clubs.
func GroupByRules(clubs []club.Club, rules []Rule) []Group {
	members := make([][]club.Club, len(rules))
	var rest []int

	for _, c := range clubs {
		matched := false
		for i, r := range rules {
			if r.Matches(c) {
				members[i] = append(members[i], c)
				matched = true
				break
			}
		}
		if !matched {
			rest = append(rest, c.ID)
		}
	}

	var groups []Group
	for i, r := range rules {
		if len(members[i]) == 0 {
			continue
		}
		g := Group{Name: r.Name, Description: r.Description, Similarity: r.similarity(members[i])}
		for _, c := range members[i] {
			g.ClubIDs = append(g.ClubIDs, c.ID)
		}
		groups = append(groups, g)
	}
	if len(rest) > 0 {
		groups = append(groups, Group{
			Name:        CatchAllName,
			Description: catchAllDescription,
			ClubIDs:     rest,
			Similarity:  catchAllSimilarity,
		})
	}
	return groups
}

// similarity is the mean fraction of rule keywords each member's tags contain.
func (r Rule) similarity(members []club.Club) float64 {
	if len(members) == 0 || len(r.Keywords) == 0 {
		return 0
	}
	var total float64
	for _, c := range members {
		total += float64(r.keywordHits(tags(c))) / float64(len(r.Keywords))
	}
	return min(total/float64(len(members)), 1)
}
