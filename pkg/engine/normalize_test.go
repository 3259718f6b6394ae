package engine_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/retina/pkg/engine"
	testutils "github.com/papercomputeco/retina/pkg/utils/test"
)

var _ = Describe("Normalize", func() {
	It("returns a sequence of the target length unchanged", func() {
		seq := testutils.TokenRows(5, 3, 0.5)
		out := engine.Normalize(seq, 5)
		Expect(out).To(HaveLen(5))
		Expect(out[0]).To(Equal(seq[0]))
	})

	It("pads short sequences with zero vectors", func() {
		seq := testutils.TokenRows(2, 3, 0.5)
		out := engine.Normalize(seq, 5)
		Expect(out).To(HaveLen(5))

		Expect(out[0]).To(Equal(seq[0]))
		Expect(out[1]).To(Equal(seq[1]))
		for i := 2; i < 5; i++ {
			Expect(out[i]).To(Equal([]float32{0, 0, 0}))
		}
	})

	It("truncates long sequences to the first targetLen rows", func() {
		seq := [][]float32{
			{1, 0},
			{2, 0},
			{3, 0},
			{4, 0},
		}
		out := engine.Normalize(seq, 2)
		Expect(out).To(HaveLen(2))
		Expect(out[0][0]).To(Equal(float32(1)))
		Expect(out[1][0]).To(Equal(float32(2)))
	})

	It("matches padding width to the sequence's token width", func() {
		seq := testutils.TokenRows(1, 7, 1.0)
		out := engine.Normalize(seq, 3)
		Expect(out[1]).To(HaveLen(7))
		Expect(out[2]).To(HaveLen(7))
	})

	It("produces only zero rows from an empty sequence", func() {
		out := engine.Normalize(nil, 3)
		Expect(out).To(HaveLen(3))
		for _, row := range out {
			Expect(row).To(BeEmpty())
		}
	})

	It("never returns more rows than the target length", func() {
		for _, n := range []int{0, 1, 10, 620, 1000} {
			out := engine.Normalize(testutils.TokenRows(n, 2, 0.1), 620)
			Expect(out).To(HaveLen(620))
		}
	})
})
