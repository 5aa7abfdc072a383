package gemini_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/minutes/pkg/llm"
	"github.com/papercomputeco/minutes/pkg/llm/provider/gemini"
)

var _ = Describe("Gemini Client", func() {
	var (
		server  *httptest.Server
		handler http.HandlerFunc
		client  *gemini.Client
	)

	BeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))

		var err error
		client, err = gemini.New(context.Background(), gemini.Config{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	It("joins candidate parts into the reply", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(ContainSubstring(gemini.DefaultModel + ":generateContent"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"candidates": [{"content": {"role": "model", "parts": [{"text": "Q4 "}, {"text": "review."}]}}],
				"usageMetadata": {"totalTokenCount": 11}
			}`))
		}

		reply, err := client.Complete(context.Background(), "summarize", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.Content).To(Equal("Q4 review."))
		Expect(reply.TokensUsed).To(Equal(11))
	})

	It("treats a reply without candidates as a failed reply", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"candidates": []}`))
		}

		_, err := client.Complete(context.Background(), "summarize", nil)
		Expect(err).To(MatchError(llm.ErrEmptyReply))
	})

	It("reports rate limits as transient", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error": {"code": 429, "message": "quota", "status": "RESOURCE_EXHAUSTED"}}`))
		}

		_, err := client.Complete(context.Background(), "summarize", nil)
		Expect(err).To(HaveOccurred())
		Expect(llm.KindOf(err)).To(Equal(llm.KindTransient))
	})

	It("switches models", func() {
		Expect(client.SetModel("gemini-2.5-pro")).To(Succeed())
		Expect(client.Model()).To(Equal("gemini-2.5-pro"))
	})
})
