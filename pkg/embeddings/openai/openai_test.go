package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/kbase/pkg/embeddings/openai"
	"github.com/papercomputeco/kbase/pkg/vector"
)

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedData struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

var _ = Describe("Embedder", func() {
	var (
		server   *httptest.Server
		requests atomic.Int32
		lastReq  embedRequest
		lastAuth string
		status   int
	)

	BeforeEach(func() {
		requests.Store(0)
		status = http.StatusOK
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/v1/embeddings"))
			Expect(r.Method).To(Equal(http.MethodPost))
			requests.Add(1)
			lastAuth = r.Header.Get("Authorization")
			Expect(json.NewDecoder(r.Body).Decode(&lastReq)).To(Succeed())

			if status != http.StatusOK {
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"error":"quota exceeded"}`))
				return
			}

			// Reply out of order to exercise index sorting.
			data := make([]embedData, len(lastReq.Input))
			for i, in := range lastReq.Input {
				data[len(data)-1-i] = embedData{Index: i, Embedding: []float32{float32(len(in)), 1}}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	newEmbedder := func() *openai.Embedder {
		e, err := openai.NewEmbedder(openai.EmbedderConfig{
			BaseURL:    server.URL + "/",
			APIKey:     "sk-test",
			Model:      "text-embedding-3-small",
			BatchSize:  2,
			BatchDelay: -1,
		})
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	It("embeds a single text with the configured model and bearer key", func() {
		emb, err := newEmbedder().Embed(context.Background(), "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(emb).To(Equal([]float32{5, 1}))
		Expect(lastReq.Model).To(Equal("text-embedding-3-small"))
		Expect(lastReq.Input).To(Equal([]string{"hello"}))
		Expect(lastAuth).To(Equal("Bearer sk-test"))
	})

	It("embeds batches in input order", func() {
		embs, err := newEmbedder().EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})
		Expect(err).NotTo(HaveOccurred())
		Expect(requests.Load()).To(Equal(int32(2)))
		Expect(embs).To(Equal([][]float32{{1, 1}, {2, 1}, {3, 1}}))
	})

	It("wraps non-200 responses in ErrEmbedding", func() {
		status = http.StatusTooManyRequests
		_, err := newEmbedder().Embed(context.Background(), "hello")
		Expect(err).To(MatchError(vector.ErrEmbedding))
		Expect(err.Error()).To(ContainSubstring("openai returned status 429"))
		Expect(err.Error()).To(ContainSubstring("quota exceeded"))
	})

	It("fills in defaults", func() {
		e, err := openai.NewEmbedder(openai.EmbedderConfig{})
		Expect(err).NotTo(HaveOccurred())
		Expect(e).NotTo(BeNil())
		Expect(e.Close()).To(Succeed())
	})
})
