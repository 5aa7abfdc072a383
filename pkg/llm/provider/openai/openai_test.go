package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/minutes/pkg/llm"
	"github.com/papercomputeco/minutes/pkg/llm/provider/openai"
)

var _ = Describe("OpenAI Client", func() {
	var (
		server  *httptest.Server
		handler http.HandlerFunc
		client  *openai.Client
	)

	BeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
		client = openai.New(openai.Config{APIKey: "sk-test", BaseURL: server.URL})
	})

	AfterEach(func() {
		server.Close()
	})

	It("sends history and prompt and returns the first choice", func() {
		var got map[string]any
		handler = func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/v1/chat/completions"))
			Expect(r.Header.Get("Authorization")).To(Equal("Bearer sk-test"))
			Expect(json.NewDecoder(r.Body).Decode(&got)).To(Succeed())
			_, _ = w.Write([]byte(`{
				"model": "gpt-4o-mini-2024",
				"choices": [{"index": 0, "message": {"role": "assistant", "content": "A summary."}}],
				"usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
			}`))
		}

		reply, err := client.Complete(context.Background(), "summarize", []llm.Message{
			llm.NewTextMessage("system", "be brief"),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.Content).To(Equal("A summary."))
		Expect(reply.Model).To(Equal("gpt-4o-mini-2024"))
		Expect(reply.TokensUsed).To(Equal(13))

		Expect(got["model"]).To(Equal(openai.DefaultModel))
		messages := got["messages"].([]any)
		Expect(messages).To(HaveLen(2))
		Expect(messages[1]).To(HaveKeyWithValue("content", "summarize"))
	})

	It("classifies 429 as transient", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}
		_, err := client.Complete(context.Background(), "x", nil)
		Expect(err).To(HaveOccurred())
		Expect(llm.KindOf(err)).To(Equal(llm.KindTransient))
	})

	It("classifies 401 as permanent", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}
		_, err := client.Complete(context.Background(), "x", nil)
		Expect(llm.KindOf(err)).To(Equal(llm.KindPermanent))
	})

	It("treats a reply without choices as a transient failure", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"choices": []}`))
		}
		_, err := client.Complete(context.Background(), "x", nil)
		Expect(err).To(MatchError(llm.ErrEmptyReply))
		Expect(llm.KindOf(err)).To(Equal(llm.KindTransient))
	})

	It("switches models for later requests", func() {
		var model string
		handler = func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			model = body["model"].(string)
			_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}]}`))
		}

		Expect(client.SetModel("gpt-4.1")).To(Succeed())
		Expect(client.Model()).To(Equal("gpt-4.1"))
		_, err := client.Complete(context.Background(), "x", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(model).To(Equal("gpt-4.1"))

		Expect(client.SetModel(" ")).NotTo(Succeed())
	})
})
