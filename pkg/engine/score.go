package engine

import "math"

// Metric selects the per-token similarity function used by the scorer.
type Metric string

const (
	// MetricDot scores token pairs by dot product (the ColQwen default).
	MetricDot Metric = "dot"

	// MetricCosine scores token pairs by cosine similarity.
	MetricCosine Metric = "cosine"
)

// Score computes the late-interaction similarity between one query sequence
// and one candidate sequence:
//
//	score(q, c) = Σ_i max_j sim(q_i, c_j)
//
// Each query token is matched against its best candidate token, then the
// per-token maxima are summed. A document scores highly when some token of
// it matches each query token well, rather than needing one global match.
//
// Accumulation is per-candidate in float64, so scoring one candidate at a
// time and scoring a whole batch produce identical values; the ranking order
// can never depend on batch size.
//
// Both sequences must share the same token width. Zero-padded query tokens
// contribute a maximum of 0 under dot product; padding never inflates a
// score.
func Score(query, candidate [][]float32, metric Metric) float64 {
	var total float64
	for _, q := range query {
		best := math.Inf(-1)
		for _, c := range candidate {
			if s := similarity(q, c, metric); s > best {
				best = s
			}
		}
		if !math.IsInf(best, -1) {
			total += best
		}
	}

	return total
}

// ScoreAll scores every candidate against the query. Results are positional:
// scores[i] is the score of candidates[i].
func ScoreAll(query [][]float32, candidates [][][]float32, metric Metric) []float64 {
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		scores[i] = Score(query, c, metric)
	}

	return scores
}

func similarity(a, b []float32, metric Metric) float64 {
	switch metric {
	case MetricCosine:
		return cosine(a, b)
	default:
		return dot(a, b)
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}

	return sum
}

func cosine(a, b []float32) float64 {
	var ab, aa, bb float64
	for i := range a {
		ab += float64(a[i]) * float64(b[i])
		aa += float64(a[i]) * float64(a[i])
		bb += float64(b[i]) * float64(b[i])
	}

	// Zero vectors (padding) have no direction; treat as orthogonal.
	if aa == 0 || bb == 0 {
		return 0
	}

	return ab / (math.Sqrt(aa) * math.Sqrt(bb))
}
