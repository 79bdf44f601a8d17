package grouping

import (
	"cmp"
	"maps"
	"math"
	"slices"
)

// vectorize builds L2-normalized TF-IDF vectors over the maxFeatures most
// frequent terms of the corpus. idf is smoothed: ln((1+n)/(1+df)) + 1.
func vectorize(docs [][]string, maxFeatures int) [][]float64 {
	freq := map[string]int{}
	df := map[string]int{}
	for _, doc := range docs {
		seen := map[string]bool{}
		for _, t := range doc {
			freq[t]++
			if !seen[t] {
				df[t]++
				seen[t] = true
			}
		}
	}

	// Most frequent first, alphabetical among equals.
	terms := slices.SortedFunc(maps.Keys(freq), func(a, b string) int {
		if c := cmp.Compare(freq[b], freq[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if maxFeatures > 0 && len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}
	slices.Sort(terms)

	index := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	n := float64(len(docs))
	for i, t := range terms {
		index[t] = i
		idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}

	vecs := make([][]float64, len(docs))
	for d, doc := range docs {
		v := make([]float64, len(terms))
		for _, t := range doc {
			if i, ok := index[t]; ok {
				v[i]++
			}
		}
		for i := range v {
			v[i] *= idf[i]
		}
		normalizeL2(v)
		vecs[d] = v
	}
	return vecs
}

func normalizeL2(v []float64) {
	var ss float64
	for _, x := range v {
		ss += x * x
	}
	if ss == 0 {
		return
	}
	norm := math.Sqrt(ss)
	for i := range v {
		v[i] /= norm
	}
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// cosine returns the cosine similarity of two vectors; 0 when either is zero.
func cosine(a, b []float64) float64 {
	na, nb := math.Sqrt(dot(a, a)), math.Sqrt(dot(b, b))
	if na == 0 || nb == 0 {
		return 0
	}
	return dot(a, b) / (na * nb)
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}
