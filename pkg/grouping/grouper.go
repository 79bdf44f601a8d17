package grouping

import (
	"fmt"
	"strings"

	"github.com/elonfeng/clubradar/pkg/club"
)

// Options configures a Grouper.
type Options struct {
	Rules            []Rule
	MaxClusters      int
	MaxFeatures      int
	MaxIterations    int
	Seed             uint64
	SimilarThreshold float64
}

// DefaultOptions returns the built-in rules and clustering parameters.
func DefaultOptions() Options {
	return Options{
		Rules:            DefaultRules(),
		MaxClusters:      3,
		MaxFeatures:      100,
		MaxIterations:    100,
		Seed:             42,
		SimilarThreshold: 0.3,
	}
}

// Grouper groups clubs with rules and diagnoses them with text clustering.
type Grouper struct {
	opts Options
}

// New returns a Grouper. Zero-valued options fall back to DefaultOptions,
// except Seed, where 0 is a valid seed.
func New(opts Options) *Grouper {
	def := DefaultOptions()
	if opts.Rules == nil {
		opts.Rules = def.Rules
	}
	if opts.MaxClusters <= 0 {
		opts.MaxClusters = def.MaxClusters
	}
	if opts.MaxFeatures <= 0 {
		opts.MaxFeatures = def.MaxFeatures
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = def.MaxIterations
	}
	if opts.SimilarThreshold <= 0 {
		opts.SimilarThreshold = def.SimilarThreshold
	}
	return &Grouper{opts: opts}
}

// Groups returns the authoritative rule-based grouping plus the catch-all.
func (g *Grouper) Groups(clubs []club.Club) []Group {
	return GroupByRules(clubs, g.opts.Rules)
}

// Clusters runs the text-similarity pass. Only clusters of two or more clubs are
// reported, with the mean pairwise cosine similarity of their members.
func (g *Grouper) Clusters(clubs []club.Club) []Group {
	if len(clubs) < 2 {
		return nil
	}

	docs := make([][]string, len(clubs))
	for i, c := range clubs {
		docs[i] = significantTokens(descriptorText(c))
	}
	vecs := vectorize(docs, g.opts.MaxFeatures)
	k := min(g.opts.MaxClusters, len(clubs))
	labels := kmeans(vecs, k, g.opts.Seed, g.opts.MaxIterations)

	members := make([][]int, k)
	for i, l := range labels {
		members[l] = append(members[l], i)
	}

	var out []Group
	for l, idx := range members {
		if len(idx) < 2 {
			continue
		}
		grp := Group{
			Name:        fmt.Sprintf("Cluster %d", l+1),
			Description: "Clubs grouped by similar descriptions, keywords and activities",
			Similarity:  meanPairwiseCosine(vecs, idx),
		}
		for _, i := range idx {
			grp.ClubIDs = append(grp.ClubIDs, clubs[i].ID)
		}
		out = append(out, grp)
	}
	return out
}

func descriptorText(c club.Club) string {
	return c.Description + " " + strings.Join(c.Keywords, " ") + " " + strings.Join(c.Activities, " ")
}

func meanPairwiseCosine(vecs [][]float64, idx []int) float64 {
	var sum float64
	pairs := 0
	for a := 0; a < len(idx); a++ {
		for b := a + 1; b < len(idx); b++ {
			sum += cosine(vecs[idx[a]], vecs[idx[b]])
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return sum / float64(pairs)
}

// Similarity scores two clubs: 0.4 keyword Jaccard + 0.4 activity Jaccard + 0.2 same category.
func Similarity(a, b club.Club) float64 {
	s := 0.4*jaccardSimilarity(lowerSet(a.Keywords), lowerSet(b.Keywords)) +
		0.4*jaccardSimilarity(lowerSet(a.Activities), lowerSet(b.Activities))
	if a.Category == b.Category {
		s += 0.2
	}
	return s
}

// Similar returns the other clubs whose similarity to target reaches the threshold, in input order.
func (g *Grouper) Similar(target club.Club, clubs []club.Club) []club.Club {
	var out []club.Club
	for _, c := range clubs {
		if c.ID == target.ID {
			continue
		}
		if Similarity(target, c) >= g.opts.SimilarThreshold {
			out = append(out, c)
		}
	}
	return out
}

// Find returns the group with the given name, matched case-insensitively.
func Find(groups []Group, name string) (Group, bool) {
	for _, grp := range groups {
		if strings.EqualFold(grp.Name, name) {
			return grp, true
		}
	}
	return Group{}, false
}
