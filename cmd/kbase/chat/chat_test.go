package chatcmder_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/kbase/api"
	chatcmder "github.com/papercomputeco/kbase/cmd/kbase/chat"
	"github.com/papercomputeco/kbase/pkg/llm"
	"github.com/papercomputeco/kbase/pkg/rag"
)

var _ = Describe("NewChatCmd", func() {
	var (
		ts       *httptest.Server
		mu       sync.Mutex
		requests []api.ChatRequest
		failures int
	)

	BeforeEach(func() {
		requests = nil
		failures = 0
		ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req api.ChatRequest
			Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())

			mu.Lock()
			requests = append(requests, req)
			failing := len(requests) <= failures
			mu.Unlock()

			w.Header().Set("Content-Type", "application/json")
			if failing {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "Chat is not configured"})
				return
			}

			last := req.Messages[len(req.Messages)-1].Content
			_ = json.NewEncoder(w).Encode(rag.ChatResult{
				Message: llm.NewTextMessage(llm.RoleAssistant, "answer to "+last),
				Context: rag.ChatContext{
					ContextUsed:   true,
					DocumentsUsed: []rag.DocumentRef{{Filename: "travel.md", Similarity: 0.8, ChunkIndex: 1}},
				},
			})
		}))
		DeferCleanup(ts.Close)
	})

	run := func(stdin string, args ...string) (string, error) {
		out := &bytes.Buffer{}
		cmd := chatcmder.NewChatCmd()
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetOut(out)
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		cmd.SetArgs(append(args, "--api-target", ts.URL, "--plain"))
		err := cmd.Execute()
		return out.String(), err
	}

	It("answers a single message with its sources", func() {
		out, err := run("", "Who approves travel?")
		Expect(err).NotTo(HaveOccurred())

		Expect(requests).To(HaveLen(1))
		Expect(requests[0].Messages).To(HaveLen(1))
		Expect(requests[0].Messages[0].Role).To(Equal(llm.RoleUser))

		Expect(out).To(ContainSubstring("answer to Who approves travel?"))
		Expect(out).To(ContainSubstring("Sources"))
		Expect(out).To(ContainSubstring("travel.md"))
	})

	It("returns API errors for a single message", func() {
		failures = 1
		_, err := run("", "Who approves travel?")
		Expect(err).To(MatchError(ContainSubstring("Chat is not configured")))
	})

	It("carries history through an interactive session", func() {
		out, err := run("first question\n\nsecond question\n/exit\n")
		Expect(err).NotTo(HaveOccurred())

		Expect(requests).To(HaveLen(2))
		Expect(requests[1].Messages).To(HaveLen(3))
		Expect(requests[1].Messages[0].Content).To(Equal("first question"))
		Expect(requests[1].Messages[1].Role).To(Equal(llm.RoleAssistant))
		Expect(requests[1].Messages[2].Content).To(Equal("second question"))
		Expect(out).To(ContainSubstring("answer to second question"))
	})

	It("keeps failed turns out of the history", func() {
		failures = 1
		out, err := run("first question\nretry\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Chat is not configured"))

		Expect(requests).To(HaveLen(2))
		Expect(requests[1].Messages).To(HaveLen(1))
		Expect(requests[1].Messages[0].Content).To(Equal("retry"))
	})

	It("rejects more than one argument", func() {
		_, err := run("", "one", "two")
		Expect(err).To(HaveOccurred())
	})
})
