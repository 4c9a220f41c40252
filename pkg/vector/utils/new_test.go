package vectorutils_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/kbase/pkg/chromadb"
	"github.com/papercomputeco/kbase/pkg/logger"
	"github.com/papercomputeco/kbase/pkg/vector/chroma"
	vectorutils "github.com/papercomputeco/kbase/pkg/vector/utils"
)

var _ = Describe("NewVectorDriver", func() {
	It("builds an embedded chroma driver", func() {
		d, err := vectorutils.NewVectorDriver(context.Background(), &vectorutils.NewVectorDriverOpts{
			ProviderType: vectorutils.ProviderChroma,
			Chroma: chromadb.Settings{
				APIImpl:          chromadb.APIImplEmbedded,
				ServerHost:       "localhost",
				ServerHTTPPort:   chromadb.DefaultPort,
				PersistDirectory: GinkgoT().TempDir(),
			},
			CollectionName: "handbook",
			Logger:         logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()

		Expect(d).To(BeAssignableToTypeOf(&chroma.Driver{}))
	})

	It("passes provider validation errors through", func() {
		_, err := vectorutils.NewVectorDriver(context.Background(), &vectorutils.NewVectorDriverOpts{
			ProviderType:   vectorutils.ProviderQdrant,
			CollectionName: "handbook",
			Dimensions:     768,
			Logger:         logger.Nop(),
		})
		Expect(err).To(MatchError(ContainSubstring("qdrant target is required")))
	})

	It("rejects unknown providers", func() {
		_, err := vectorutils.NewVectorDriver(context.Background(), &vectorutils.NewVectorDriverOpts{
			ProviderType: "weaviate",
		})
		Expect(err).To(MatchError(ContainSubstring("unsupported vector store provider: weaviate")))
	})
})
