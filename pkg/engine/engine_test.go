package engine_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/retina/pkg/answer"
	"github.com/papercomputeco/retina/pkg/embeddings"
	"github.com/papercomputeco/retina/pkg/engine"
	"github.com/papercomputeco/retina/pkg/record"
	"github.com/papercomputeco/retina/pkg/record/inmemory"
	"github.com/papercomputeco/retina/pkg/splitter"
	testutils "github.com/papercomputeco/retina/pkg/utils/test"
)

var _ = Describe("Engine", func() {
	var (
		ctx       context.Context
		store     *inmemory.Store
		generator *testutils.MockGenerator
		split     *testutils.MockSplitter
		synth     *testutils.MockSynthesizer
		publisher *testutils.MockPublisher
		eng       *engine.Engine
	)

	newEngine := func() *engine.Engine {
		e, err := engine.New(engine.Config{
			TargetLen: 8,
		}, engine.Deps{
			Generator:   generator,
			Store:       store,
			Splitter:    split,
			Synthesizer: synth,
			Publisher:   publisher,
		})
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewStore()
		generator = testutils.NewMockGenerator()
		split = testutils.NewMockSplitter()
		synth = testutils.NewMockSynthesizer()
		publisher = testutils.NewMockPublisher()
		eng = newEngine()
	})

	Describe("New", func() {
		It("requires a generator", func() {
			_, err := engine.New(engine.Config{}, engine.Deps{Store: store})
			Expect(err).To(HaveOccurred())
		})

		It("requires a store", func() {
			_, err := engine.New(engine.Config{}, engine.Deps{Generator: generator})
			Expect(err).To(HaveOccurred())
		})

		It("rejects an unknown metric", func() {
			_, err := engine.New(engine.Config{Metric: "euclidean"}, engine.Deps{
				Generator: generator,
				Store:     store,
			})
			Expect(err).To(HaveOccurred())
		})

		It("applies the default target length", func() {
			e, err := engine.New(engine.Config{}, engine.Deps{
				Generator: generator,
				Store:     store,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(e.TargetLen()).To(Equal(engine.DefaultTargetLen))
		})
	})

	Describe("Index", func() {
		It("stores a new payload under its content hash", func() {
			payload := []byte("page-1")

			hash, duplicate, err := eng.Index(ctx, "docs", payload, "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(duplicate).To(BeFalse())
			Expect(hash).To(Equal(record.ContentHash(payload)))

			rec, err := store.Get(ctx, "docs", hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Payload).To(Equal(payload))
			Expect(rec.MediaType).To(Equal("image/png"))
			Expect(rec.Dim).To(Equal(4))
		})

		It("is idempotent: re-indexing skips the generator entirely", func() {
			payload := []byte("page-1")

			hash1, _, err := eng.Index(ctx, "docs", payload, "image/png")
			Expect(err).NotTo(HaveOccurred())

			hash2, duplicate, err := eng.Index(ctx, "docs", payload, "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(duplicate).To(BeTrue())
			Expect(hash2).To(Equal(hash1))

			Expect(generator.ImageCalls.Load()).To(Equal(int64(1)))
		})

		It("indexes the same payload independently per namespace", func() {
			payload := []byte("shared")

			_, dup1, err := eng.Index(ctx, "a", payload, "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(dup1).To(BeFalse())

			_, dup2, err := eng.Index(ctx, "b", payload, "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(dup2).To(BeFalse())
		})

		It("rejects an empty namespace", func() {
			_, _, err := eng.Index(ctx, "", []byte("x"), "image/png")
			Expect(errors.Is(err, engine.ErrInvalidInput)).To(BeTrue())
		})

		It("rejects an empty payload", func() {
			_, _, err := eng.Index(ctx, "docs", nil, "image/png")
			Expect(errors.Is(err, engine.ErrInvalidInput)).To(BeTrue())
		})

		It("stores nothing when the generator fails", func() {
			generator.FailOn = "poison"

			_, _, err := eng.Index(ctx, "docs", []byte("poison"), "image/png")
			Expect(errors.Is(err, embeddings.ErrGeneration)).To(BeTrue())

			exists, err := store.Has(ctx, "docs", record.ContentHash([]byte("poison")))
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeFalse())
			Expect(publisher.Events()).To(BeEmpty())
		})

		It("rejects a ragged generator output", func() {
			generator.ImageEmbeddings["bad"] = [][]float32{
				{1, 2, 3},
				{1, 2},
			}

			_, _, err := eng.Index(ctx, "docs", []byte("bad"), "image/png")
			Expect(errors.Is(err, embeddings.ErrGeneration)).To(BeTrue())
		})

		It("admits exactly one record under concurrent duplicate indexing", func() {
			payload := []byte("contended")

			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					_, _, err := eng.Index(ctx, "docs", payload, "image/png")
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()

			recs, err := store.List(ctx, "docs")
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(1))
		})

		It("publishes an event for fresh and duplicate indexes", func() {
			payload := []byte("page-1")

			_, _, err := eng.Index(ctx, "docs", payload, "image/png")
			Expect(err).NotTo(HaveOccurred())
			_, _, err = eng.Index(ctx, "docs", payload, "image/png")
			Expect(err).NotTo(HaveOccurred())

			events := publisher.Events()
			Expect(events).To(HaveLen(2))
			Expect(events[0].Duplicate).To(BeFalse())
			Expect(events[1].Duplicate).To(BeTrue())
			Expect(events[0].Namespace).To(Equal("docs"))
			Expect(events[0].ContentHash).To(Equal(record.ContentHash(payload)))
		})

		It("succeeds even when event publishing fails", func() {
			publisher.Fail = true

			_, _, err := eng.Index(ctx, "docs", []byte("page-1"), "image/png")
			Expect(err).NotTo(HaveOccurred())

			exists, err := store.Has(ctx, "docs", record.ContentHash([]byte("page-1")))
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeTrue())
		})
	})

	Describe("IndexPages", func() {
		It("indexes every page of a split document", func() {
			split.Pages = [][]byte{[]byte("p1"), []byte("p2"), []byte("p3")}

			result, err := eng.IndexPages(ctx, "docs", []byte("doc.pdf"))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Hashes).To(HaveLen(3))
			Expect(result.Failures).To(BeEmpty())

			recs, err := store.List(ctx, "docs")
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(3))
		})

		It("keeps successful pages when one page fails", func() {
			split.Pages = [][]byte{[]byte("p1"), []byte("p2"), []byte("p3")}
			generator.FailOn = "p2"

			result, err := eng.IndexPages(ctx, "docs", []byte("doc.pdf"))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Hashes).To(HaveLen(2))
			Expect(result.Failures).To(HaveLen(1))
			Expect(result.Failures[0].Page).To(Equal(2))
		})

		It("fails when the splitter fails", func() {
			split.Fail = true

			_, err := eng.IndexPages(ctx, "docs", []byte("doc.pdf"))
			Expect(errors.Is(err, splitter.ErrSplit)).To(BeTrue())
		})
	})

	Describe("Query", func() {
		BeforeEach(func() {
			// Three documents along distinct axes of a 4-wide space.
			generator.ImageEmbeddings["doc-a"] = [][]float32{testutils.Basis(4, 0)}
			generator.ImageEmbeddings["doc-b"] = [][]float32{testutils.Basis(4, 1)}
			generator.ImageEmbeddings["doc-c"] = [][]float32{testutils.Basis(4, 2)}

			for _, p := range []string{"doc-a", "doc-b", "doc-c"} {
				_, _, err := eng.Index(ctx, "docs", []byte(p), "image/png")
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("ranks the best-aligned document first", func() {
			generator.QueryEmbeddings["find b"] = [][]float32{testutils.Basis(4, 1)}

			matches, err := eng.Query(ctx, "docs", "find b", 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(3))
			Expect(matches[0].ContentHash).To(Equal(record.ContentHash([]byte("doc-b"))))
			Expect(matches[0].Score).To(BeNumerically(">", matches[1].Score))
		})

		It("breaks ties by insertion order", func() {
			generator.QueryEmbeddings["nothing"] = [][]float32{testutils.Basis(4, 3)}

			matches, err := eng.Query(ctx, "docs", "nothing", 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(3))

			// All score zero, so the order is the order of indexing.
			Expect(matches[0].ContentHash).To(Equal(record.ContentHash([]byte("doc-a"))))
			Expect(matches[1].ContentHash).To(Equal(record.ContentHash([]byte("doc-b"))))
			Expect(matches[2].ContentHash).To(Equal(record.ContentHash([]byte("doc-c"))))
		})

		It("is deterministic across repeated calls", func() {
			first, err := eng.Query(ctx, "docs", "anything", 3)
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 5; i++ {
				again, err := eng.Query(ctx, "docs", "anything", 3)
				Expect(err).NotTo(HaveOccurred())
				Expect(again).To(Equal(first))
			}
		})

		It("scores a document the same alone or among others", func() {
			_, _, err := eng.Index(ctx, "solo", []byte("doc-b"), "image/png")
			Expect(err).NotTo(HaveOccurred())

			generator.QueryEmbeddings["find b"] = [][]float32{testutils.Basis(4, 1)}

			alone, err := eng.Query(ctx, "solo", "find b", 1)
			Expect(err).NotTo(HaveOccurred())

			among, err := eng.Query(ctx, "docs", "find b", 1)
			Expect(err).NotTo(HaveOccurred())

			Expect(alone[0].Score).To(Equal(among[0].Score))
		})

		It("truncates to k matches", func() {
			matches, err := eng.Query(ctx, "docs", "anything", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(2))
		})

		It("falls back to the default k when k is not positive", func() {
			matches, err := eng.Query(ctx, "docs", "anything", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(3))
		})

		It("returns an empty result for an empty namespace", func() {
			matches, err := eng.Query(ctx, "nowhere", "anything", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).NotTo(BeNil())
			Expect(matches).To(BeEmpty())
		})

		It("rejects blank query text", func() {
			_, err := eng.Query(ctx, "docs", "", 5)
			Expect(errors.Is(err, engine.ErrInvalidInput)).To(BeTrue())
		})

		It("refuses to score against a mismatched stored dimension", func() {
			generator.QueryEmbeddings["wide"] = testutils.TokenRows(2, 6, 0.5)

			_, err := eng.Query(ctx, "docs", "wide", 5)

			var shapeErr *engine.ShapeMismatchError
			Expect(errors.As(err, &shapeErr)).To(BeTrue())
			Expect(shapeErr.Want).To(Equal(6))
			Expect(shapeErr.Got).To(Equal(4))
			Expect(shapeErr.Namespace).To(Equal("docs"))
			Expect(engine.Retryable(err)).To(BeFalse())
		})

		It("fails when the generator fails", func() {
			generator.FailOn = "broken"

			_, err := eng.Query(ctx, "docs", "broken", 5)
			Expect(errors.Is(err, embeddings.ErrGeneration)).To(BeTrue())
		})
	})

	Describe("Answer", func() {
		It("synthesizes from the best-matching page", func() {
			generator.ImageEmbeddings["doc-b"] = [][]float32{testutils.Basis(4, 1)}
			for _, p := range []string{"doc-a", "doc-b"} {
				_, _, err := eng.Index(ctx, "docs", []byte(p), "image/png")
				Expect(err).NotTo(HaveOccurred())
			}

			generator.QueryEmbeddings["question"] = [][]float32{testutils.Basis(4, 1)}
			synth.Response = "the answer is b"

			output, err := eng.Answer(ctx, "docs", "question")
			Expect(err).NotTo(HaveOccurred())
			Expect(output.Answer).To(Equal("the answer is b"))
			Expect(output.Match.ContentHash).To(Equal(record.ContentHash([]byte("doc-b"))))
			Expect(synth.LastQuestion).To(Equal("question"))
			Expect(synth.LastImage).To(Equal([]byte("doc-b")))
		})

		It("returns ErrNoMatch for an empty namespace", func() {
			_, err := eng.Answer(ctx, "nowhere", "question")
			Expect(errors.Is(err, engine.ErrNoMatch)).To(BeTrue())
			Expect(engine.Retryable(err)).To(BeFalse())
		})

		It("fails when synthesis fails", func() {
			_, _, err := eng.Index(ctx, "docs", []byte("doc-a"), "image/png")
			Expect(err).NotTo(HaveOccurred())

			synth.Fail = true

			_, err = eng.Answer(ctx, "docs", "question")
			Expect(errors.Is(err, answer.ErrSynthesis)).To(BeTrue())
		})
	})
})

var _ = Describe("Retryable", func() {
	It("treats nil as not retryable", func() {
		Expect(engine.Retryable(nil)).To(BeFalse())
	})

	It("treats invalid input and no-match as terminal", func() {
		Expect(engine.Retryable(engine.ErrInvalidInput)).To(BeFalse())
		Expect(engine.Retryable(engine.ErrNoMatch)).To(BeFalse())
	})

	It("treats shape mismatches as terminal", func() {
		err := &engine.ShapeMismatchError{Namespace: "docs", Want: 128, Got: 96}
		Expect(engine.Retryable(err)).To(BeFalse())
	})

	It("treats everything else as transient", func() {
		Expect(engine.Retryable(errors.New("connection refused"))).To(BeTrue())
		Expect(engine.Retryable(embeddings.ErrGeneration)).To(BeTrue())
	})
})
