package vector_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/kbase/pkg/vector"
)

var _ = Describe("QueryResult", func() {
	It("derives similarity from distance", func() {
		r := vector.NewQueryResult(vector.Document{ID: "a"}, 0.25)
		Expect(r.Distance).To(BeNumerically("~", 0.25))
		Expect(r.Similarity).To(BeNumerically("~", 0.75))
	})
})

var _ = Describe("metadata helpers", func() {
	m := map[string]any{
		vector.MetaFilename:   "handbook.pdf",
		vector.MetaChunkIndex: float64(3),
		"count":               int64(7),
	}

	It("reads strings", func() {
		Expect(vector.StringMeta(m, vector.MetaFilename)).To(Equal("handbook.pdf"))
		Expect(vector.StringMeta(m, "missing")).To(BeEmpty())
	})

	It("reads integers from any numeric kind", func() {
		Expect(vector.IntMeta(m, vector.MetaChunkIndex)).To(Equal(3))
		Expect(vector.IntMeta(m, "count")).To(Equal(7))
		Expect(vector.IntMeta(m, vector.MetaFilename)).To(Equal(0))
	})
})
