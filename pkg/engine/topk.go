package engine

import "sort"

// Scored pairs a candidate's position in the scan order with its score.
// Ordinal is the candidate's insertion order within its namespace.
type Scored struct {
	Ordinal int
	Score   float64
}

// TopK returns the min(k, len(scored)) best candidates, ordered by
// descending score. Equal scores are broken by ascending ordinal (earliest
// inserted first), so repeated calls over the same data return the same
// order.
func TopK(scored []Scored, k int) []Scored {
	if k < 0 {
		k = 0
	}

	ranked := make([]Scored, len(scored))
	copy(ranked, scored)

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Ordinal < ranked[j].Ordinal
	})

	if k < len(ranked) {
		ranked = ranked[:k]
	}

	return ranked
}
