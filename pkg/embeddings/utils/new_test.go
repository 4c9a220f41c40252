package embeddingutils_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/kbase/pkg/embeddings/ollama"
	"github.com/papercomputeco/kbase/pkg/embeddings/openai"
	embeddingutils "github.com/papercomputeco/kbase/pkg/embeddings/utils"
)

var _ = Describe("NewEmbedder", func() {
	DescribeTable("builds each provider",
		func(provider string, expected any) {
			e, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
				ProviderType: provider,
				APIKey:       "key",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(e).To(BeAssignableToTypeOf(expected))
		},
		Entry("jina", embeddingutils.ProviderJina, &openai.Embedder{}),
		Entry("default", "", &openai.Embedder{}),
		Entry("openai", embeddingutils.ProviderOpenAI, &openai.Embedder{}),
		Entry("ollama", embeddingutils.ProviderOllama, &ollama.Embedder{}),
	)

	It("rejects unknown providers", func() {
		_, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{ProviderType: "cohere"})
		Expect(err).To(MatchError("unsupported embedding provider: cohere"))
	})
})
