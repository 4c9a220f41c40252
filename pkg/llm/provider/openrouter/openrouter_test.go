package openrouter_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/kbase/pkg/llm"
	"github.com/papercomputeco/kbase/pkg/llm/provider/openrouter"
)

var _ = Describe("OpenRouter", func() {
	It("posts to /v1/chat/completions with the referer header and default model", func() {
		var body map[string]any
		var referer, auth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/api/v1/chat/completions"))
			referer = r.Header.Get("HTTP-Referer")
			auth = r.Header.Get("Authorization")
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Use the Aqua app."}}]}`))
		}))
		defer server.Close()

		c := openrouter.New(openrouter.Config{BaseURL: server.URL + "/api", APIKey: "or-key"})
		Expect(c.Name()).To(Equal("openrouter"))

		resp, err := c.Complete(context.Background(), []llm.Message{
			llm.NewTextMessage(llm.RoleUser, "How do I request leave?"),
		}, llm.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Message.Content).To(Equal("Use the Aqua app."))
		Expect(referer).To(Equal(openrouter.DefaultReferer))
		Expect(auth).To(Equal("Bearer or-key"))
		Expect(body["model"]).To(Equal(openrouter.DefaultModel))
	})

	It("labels failures with the provider name", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		c := openrouter.New(openrouter.Config{BaseURL: server.URL})
		_, err := c.Complete(context.Background(), nil, llm.Options{})
		Expect(err).To(MatchError(llm.ErrCompletion))
		Expect(err.Error()).To(ContainSubstring("openrouter returned status 429"))
	})
})
