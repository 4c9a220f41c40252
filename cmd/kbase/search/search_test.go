package searchcmder_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/kbase/api"
	searchcmder "github.com/papercomputeco/kbase/cmd/kbase/search"
)

var response = api.SearchResponse{
	Query: "paid leave",
	Results: []api.SearchHit{
		{Content: "Employees accrue twenty days\nof paid leave.", Filename: "handbook.pdf", Similarity: 0.91, ChunkIndex: 3},
		{Content: "Leave requests go to your manager.", Filename: "handbook.pdf", Similarity: 0.74, ChunkIndex: 7},
		{Content: "Contractors do not accrue leave.", Filename: "contractors.docx", Similarity: 0.52, ChunkIndex: 0},
	},
}

var _ = Describe("PrintResults", func() {
	It("prints ranked hits with flattened previews", func() {
		out := &bytes.Buffer{}
		searchcmder.PrintResults(out, &response)

		Expect(out.String()).To(ContainSubstring("paid leave"))
		Expect(out.String()).To(ContainSubstring("#1"))
		Expect(out.String()).To(ContainSubstring("#3"))
		Expect(out.String()).To(ContainSubstring("contractors.docx"))
		Expect(out.String()).To(ContainSubstring("(chunk 7)"))
		Expect(out.String()).To(ContainSubstring("twenty days of paid leave."))
	})

	It("reports empty results", func() {
		out := &bytes.Buffer{}
		searchcmder.PrintResults(out, &api.SearchResponse{Query: "nothing"})
		Expect(out.String()).To(Equal("No results found.\n"))
	})
})

var _ = Describe("PrintFilenames", func() {
	It("prints each matching file once in rank order", func() {
		out := &bytes.Buffer{}
		searchcmder.PrintFilenames(out, &response)
		Expect(out.String()).To(Equal("handbook.pdf\ncontractors.docx\n"))
	})
})

var _ = Describe("NewSearchCmd", func() {
	var (
		ts       *httptest.Server
		gotQuery string
		gotLimit string
	)

	BeforeEach(func() {
		ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query().Get("query")
			gotLimit = r.URL.Query().Get("limit")
			w.Header().Set("Content-Type", "application/json")
			Expect(json.NewEncoder(w).Encode(response)).To(Succeed())
		}))
		DeferCleanup(ts.Close)
	})

	It("requires a query", func() {
		cmd := searchcmder.NewSearchCmd()
		cmd.SetArgs([]string{})
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		Expect(cmd.Execute()).NotTo(Succeed())
	})

	It("searches the API target and prints filenames with --quiet", func() {
		out := &bytes.Buffer{}
		cmd := searchcmder.NewSearchCmd()
		cmd.SetOut(out)
		cmd.SetArgs([]string{"paid leave", "--api-target", ts.URL, "--limit", "3", "--quiet"})

		Expect(cmd.Execute()).To(Succeed())
		Expect(gotQuery).To(Equal("paid leave"))
		Expect(gotLimit).To(Equal("3"))
		Expect(out.String()).To(Equal("handbook.pdf\ncontractors.docx\n"))
	})
})
