package resetcmder_test

import (
	"bytes"
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	resetcmder "github.com/papercomputeco/kbase/cmd/kbase/reset"
	"github.com/papercomputeco/kbase/pkg/rag"
	testutils "github.com/papercomputeco/kbase/pkg/utils/test"
	"github.com/papercomputeco/kbase/pkg/vector"
)

var _ = Describe("Reset", func() {
	var (
		ctx    context.Context
		driver *testutils.MockVectorDriver
		svc    *rag.Service
		out    *bytes.Buffer
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = testutils.NewMockVectorDriver()
		Expect(driver.Add(ctx, []vector.Document{
			{ID: "a-0", Content: "alpha", Embedding: []float32{0.1, 0.2, 0.3}},
			{ID: "a-1", Content: "beta", Embedding: []float32{0.1, 0.2, 0.3}},
		})).To(Succeed())

		var err error
		svc, err = rag.New(rag.Config{Embedder: testutils.NewMockEmbedder(), Driver: driver})
		Expect(err).NotTo(HaveOccurred())

		out = &bytes.Buffer{}
	})

	count := func() int {
		n, err := driver.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		return n
	}

	It("removes every chunk when confirmed", func() {
		Expect(resetcmder.Reset(ctx, strings.NewReader("y\n"), out, svc, "company_knowledge", false)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Remove 2 chunk(s)"))
		Expect(count()).To(BeZero())
	})

	It("skips the prompt with yes", func() {
		Expect(resetcmder.Reset(ctx, strings.NewReader(""), out, svc, "company_knowledge", true)).To(Succeed())
		Expect(out.String()).NotTo(ContainSubstring("[y/N]"))
		Expect(count()).To(BeZero())
	})

	It("keeps documents when declined", func() {
		err := resetcmder.Reset(ctx, strings.NewReader("n\n"), out, svc, "company_knowledge", false)
		Expect(err).To(MatchError(resetcmder.ErrAborted))
		Expect(out.String()).To(ContainSubstring("Nothing removed."))
		Expect(count()).To(Equal(2))
	})

	It("treats an empty answer as no", func() {
		err := resetcmder.Reset(ctx, strings.NewReader(""), out, svc, "company_knowledge", false)
		Expect(err).To(MatchError(resetcmder.ErrAborted))
		Expect(count()).To(Equal(2))
	})
})
