package rasterd_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/retina/pkg/splitter"
	"github.com/papercomputeco/retina/pkg/splitter/rasterd"
)

func TestRasterd(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Rasterd Suite")
}

var _ = Describe("Splitter", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("posts the document to /split and decodes the pages in order", func() {
		var gotPath string
		var gotReq struct {
			Document string `json:"document"`
			Format   string `json:"format"`
		}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			Expect(json.NewDecoder(r.Body).Decode(&gotReq)).To(Succeed())

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"pages": []string{
					base64.StdEncoding.EncodeToString([]byte("page-1")),
					base64.StdEncoding.EncodeToString([]byte("page-2")),
				},
			})
		}))
		defer server.Close()

		split, err := rasterd.NewSplitter(rasterd.Config{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		pages, err := split.Split(ctx, []byte("pdf-bytes"))
		Expect(err).NotTo(HaveOccurred())
		Expect(pages).To(Equal([][]byte{[]byte("page-1"), []byte("page-2")}))

		Expect(gotPath).To(Equal("/split"))
		Expect(gotReq.Format).To(Equal("png"))

		decoded, err := base64.StdEncoding.DecodeString(gotReq.Document)
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded).To(Equal([]byte("pdf-bytes")))
	})

	It("wraps a pageless response in ErrSplit", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"pages": []string{}})
		}))
		defer server.Close()

		split, err := rasterd.NewSplitter(rasterd.Config{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = split.Split(ctx, []byte("pdf-bytes"))
		Expect(errors.Is(err, splitter.ErrSplit)).To(BeTrue())
	})

	It("wraps non-200 responses in ErrSplit", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "unsupported document", http.StatusUnprocessableEntity)
		}))
		defer server.Close()

		split, err := rasterd.NewSplitter(rasterd.Config{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = split.Split(ctx, []byte("pdf-bytes"))
		Expect(errors.Is(err, splitter.ErrSplit)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("422"))
	})

	It("wraps invalid page encodings in ErrSplit", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"pages": []string{"not base64!!!"}})
		}))
		defer server.Close()

		split, err := rasterd.NewSplitter(rasterd.Config{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = split.Split(ctx, []byte("pdf-bytes"))
		Expect(errors.Is(err, splitter.ErrSplit)).To(BeTrue())
	})
})
