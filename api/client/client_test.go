package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/gofiber/adaptor/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/kbase/api"
	"github.com/papercomputeco/kbase/api/client"
	"github.com/papercomputeco/kbase/pkg/llm"
	"github.com/papercomputeco/kbase/pkg/rag"
	testutils "github.com/papercomputeco/kbase/pkg/utils/test"
	"github.com/papercomputeco/kbase/pkg/vector"
)

var _ = Describe("Client", func() {
	var (
		ts     *httptest.Server
		c      *client.Client
		driver *testutils.MockVectorDriver
		chat   *testutils.MockLLMClient
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = testutils.NewMockVectorDriver()
		chat = testutils.NewMockLLMClient("Twenty days per year.")

		svc, err := rag.New(rag.Config{
			Embedder: testutils.NewMockEmbedder(),
			Driver:   driver,
			Chat:     chat,
		})
		Expect(err).NotTo(HaveOccurred())

		server, err := api.NewServer(api.Config{UploadDir: GinkgoT().TempDir()}, svc, nil)
		Expect(err).NotTo(HaveOccurred())

		ts = httptest.NewServer(adaptor.FiberApp(server.App()))
		DeferCleanup(ts.Close)

		c, err = client.New(ts.URL)
		Expect(err).NotTo(HaveOccurred())

		Expect(driver.Add(ctx, []vector.Document{{
			ID:        "handbook-0",
			Content:   "Employees accrue twenty days of paid leave.",
			Embedding: []float32{0.1, 0.2, 0.3},
			Metadata: map[string]any{
				vector.MetaFilename:   "handbook.txt",
				vector.MetaType:       "txt",
				vector.MetaChunkIndex: 0,
			},
		}})).To(Succeed())
	})

	It("rejects target URLs without a scheme and host", func() {
		_, err := client.New("localhost")
		Expect(err).To(HaveOccurred())
	})

	It("searches stored documents", func() {
		out, err := c.Search(ctx, "paid leave", 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Query).To(Equal("paid leave"))
		Expect(out.Results).To(HaveLen(1))
		Expect(out.Results[0].Filename).To(Equal("handbook.txt"))
		Expect(out.Results[0].Similarity).To(BeNumerically("~", 1.0, 0.001))
	})

	It("surfaces API errors with their status", func() {
		_, err := c.Search(ctx, "   ", 0)
		Expect(err).To(MatchError(ContainSubstring("HTTP 400")))
		Expect(err).To(MatchError(ContainSubstring("Search query is required")))
	})

	It("sends a conversation to the chat endpoint", func() {
		res, err := c.Chat(ctx, []llm.Message{llm.NewTextMessage("user", "How much leave do I get?")})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Message.Role).To(Equal("assistant"))
		Expect(res.Message.Content).To(Equal("Twenty days per year."))
		Expect(res.Context.ContextUsed).To(BeTrue())
		Expect(res.Context.DocumentsUsed).To(HaveLen(1))
	})

	It("reports health with the document count", func() {
		h, err := c.Health(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(h.Status).To(Equal("healthy"))
		Expect(h.Documents).To(Equal(1))
	})

	It("reports connection failures against the target", func() {
		dead := httptest.NewServer(http.NotFoundHandler())
		url := dead.URL
		dead.Close()

		c, err := client.New(url)
		Expect(err).NotTo(HaveOccurred())

		_, err = c.Search(ctx, "leave", 1)
		Expect(err).To(MatchError(ContainSubstring("failed to connect to kbase API")))
	})
})
