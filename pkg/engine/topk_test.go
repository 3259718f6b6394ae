package engine_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/retina/pkg/engine"
)

var _ = Describe("TopK", func() {
	It("orders by descending score", func() {
		scored := []engine.Scored{
			{Ordinal: 0, Score: 1.0},
			{Ordinal: 1, Score: 3.0},
			{Ordinal: 2, Score: 2.0},
		}

		ranked := engine.TopK(scored, 3)
		Expect(ranked[0].Ordinal).To(Equal(1))
		Expect(ranked[1].Ordinal).To(Equal(2))
		Expect(ranked[2].Ordinal).To(Equal(0))
	})

	It("breaks score ties by ascending ordinal", func() {
		scored := []engine.Scored{
			{Ordinal: 2, Score: 1.0},
			{Ordinal: 0, Score: 1.0},
			{Ordinal: 1, Score: 1.0},
		}

		ranked := engine.TopK(scored, 3)
		Expect(ranked[0].Ordinal).To(Equal(0))
		Expect(ranked[1].Ordinal).To(Equal(1))
		Expect(ranked[2].Ordinal).To(Equal(2))
	})

	It("truncates to k results", func() {
		scored := []engine.Scored{
			{Ordinal: 0, Score: 1.0},
			{Ordinal: 1, Score: 3.0},
			{Ordinal: 2, Score: 2.0},
		}

		ranked := engine.TopK(scored, 2)
		Expect(ranked).To(HaveLen(2))
		Expect(ranked[0].Ordinal).To(Equal(1))
	})

	It("returns everything when k exceeds the candidate count", func() {
		scored := []engine.Scored{
			{Ordinal: 0, Score: 1.0},
			{Ordinal: 1, Score: 2.0},
		}

		Expect(engine.TopK(scored, 100)).To(HaveLen(2))
	})

	It("returns nothing for k of zero or less", func() {
		scored := []engine.Scored{{Ordinal: 0, Score: 1.0}}
		Expect(engine.TopK(scored, 0)).To(BeEmpty())
		Expect(engine.TopK(scored, -1)).To(BeEmpty())
	})

	It("does not mutate its input", func() {
		scored := []engine.Scored{
			{Ordinal: 0, Score: 1.0},
			{Ordinal: 1, Score: 3.0},
			{Ordinal: 2, Score: 2.0},
		}

		engine.TopK(scored, 3)
		Expect(scored[0].Ordinal).To(Equal(0))
		Expect(scored[1].Ordinal).To(Equal(1))
		Expect(scored[2].Ordinal).To(Equal(2))
	})

	It("is stable across repeated calls", func() {
		scored := []engine.Scored{
			{Ordinal: 3, Score: 2.0},
			{Ordinal: 1, Score: 2.0},
			{Ordinal: 0, Score: 5.0},
			{Ordinal: 2, Score: 2.0},
		}

		first := engine.TopK(scored, 4)
		for i := 0; i < 10; i++ {
			Expect(engine.TopK(scored, 4)).To(Equal(first))
		}
	})
})
