package engine_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/retina/pkg/engine"
	testutils "github.com/papercomputeco/retina/pkg/utils/test"
)

var _ = Describe("Score", func() {
	Context("with the dot product metric", func() {
		It("sums the best candidate token per query token", func() {
			query := [][]float32{
				testutils.Basis(4, 0),
				testutils.Basis(4, 1),
			}
			candidate := [][]float32{
				testutils.Basis(4, 0),
				testutils.Basis(4, 1),
				testutils.Basis(4, 2),
			}

			// Each query token finds its matching axis: 1 + 1.
			Expect(engine.Score(query, candidate, engine.MetricDot)).To(Equal(2.0))
		})

		It("picks the maximum, not the sum, over candidate tokens", func() {
			query := [][]float32{{1, 0}}
			candidate := [][]float32{
				{0.5, 0},
				{0.9, 0},
				{0.1, 0},
			}

			// 0.9 is not exactly representable as a float32 row value.
			Expect(engine.Score(query, candidate, engine.MetricDot)).To(BeNumerically("~", 0.9, 1e-6))
		})

		It("is unchanged by zero-vector padding on the candidate", func() {
			query := [][]float32{
				testutils.Basis(4, 0),
				testutils.Basis(4, 2),
			}
			candidate := testutils.TokenRows(3, 4, 0.25)
			padded := engine.Normalize(candidate, 50)

			Expect(engine.Score(query, padded, engine.MetricDot)).
				To(Equal(engine.Score(query, candidate, engine.MetricDot)))
		})

		It("scores an empty candidate as zero", func() {
			query := testutils.TokenRows(3, 4, 0.5)
			Expect(engine.Score(query, nil, engine.MetricDot)).To(Equal(0.0))
		})

		It("scores an empty query as zero", func() {
			candidate := testutils.TokenRows(3, 4, 0.5)
			Expect(engine.Score(nil, candidate, engine.MetricDot)).To(Equal(0.0))
		})
	})

	Context("with the cosine metric", func() {
		It("scores identical directions as 1 regardless of magnitude", func() {
			query := [][]float32{{3, 0}}
			candidate := [][]float32{{0.5, 0}}

			Expect(engine.Score(query, candidate, engine.MetricCosine)).To(BeNumerically("~", 1.0, 1e-9))
		})

		It("treats zero vectors as orthogonal", func() {
			query := [][]float32{{1, 0}}
			candidate := [][]float32{{0, 0}}

			Expect(engine.Score(query, candidate, engine.MetricCosine)).To(Equal(0.0))
		})
	})
})

var _ = Describe("ScoreAll", func() {
	It("returns positional scores matching single-candidate calls", func() {
		query := [][]float32{
			testutils.Basis(4, 0),
			testutils.Basis(4, 1),
		}
		candidates := [][][]float32{
			{testutils.Basis(4, 0)},
			{testutils.Basis(4, 1)},
			{testutils.Basis(4, 2)},
			testutils.TokenRows(5, 4, 0.3),
		}

		batch := engine.ScoreAll(query, candidates, engine.MetricDot)
		Expect(batch).To(HaveLen(len(candidates)))

		// Scoring one at a time must be bit-identical to scoring the batch.
		for i, c := range candidates {
			Expect(batch[i]).To(Equal(engine.Score(query, c, engine.MetricDot)))
		}
	})

	It("returns an empty slice for no candidates", func() {
		Expect(engine.ScoreAll(testutils.TokenRows(2, 4, 0.5), nil, engine.MetricDot)).To(BeEmpty())
	})
})
