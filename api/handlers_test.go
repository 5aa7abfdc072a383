package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/minutes/pkg/logger"
	"github.com/papercomputeco/minutes/pkg/prompt"
	"github.com/papercomputeco/minutes/pkg/storage"
	"github.com/papercomputeco/minutes/pkg/transcript"
)

func jsonRequest(method, path string, body any) *http.Request {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, path, r)
	Expect(err).NotTo(HaveOccurred())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decode[T any](resp *http.Response) T {
	var out T
	data, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	Expect(json.Unmarshal(data, &out)).To(Succeed())
	return out
}

var _ = Describe("Handlers", func() {
	var (
		env *testEnv
		ctx context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		env = newTestEnv(nil, Deps{})
	})

	Describe("GET /ping", func() {
		It("returns pong", func() {
			resp, err := env.server.app.Test(jsonRequest(http.MethodGet, "/ping", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(decode[string](resp)).To(Equal("pong"))
		})
	})

	Describe("POST /v1/segments", func() {
		It("enqueues a fragment and returns 202", func() {
			ts := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
			resp, err := env.server.app.Test(jsonRequest(http.MethodPost, "/v1/segments", IngestRequest{
				Text:      "  Revenue is up 15%.  ",
				Speaker:   "Bob",
				Timestamp: &ts,
			}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusAccepted))

			f := decode[transcript.Fragment](resp)
			Expect(f.Text).To(Equal("Revenue is up 15%."))
			Expect(f.SpeakerName()).To(Equal("Bob"))
			Expect(f.Timestamp.Equal(ts)).To(BeTrue())

			Expect(env.bus.Len()).To(Equal(1))
			queued, err := env.bus.Get(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(queued.Text).To(Equal("Revenue is up 15%."))
		})

		It("stamps fragments without a timestamp", func() {
			before := time.Now()
			resp, err := env.server.app.Test(jsonRequest(http.MethodPost, "/v1/segments", map[string]string{"text": "hello"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusAccepted))

			f := decode[transcript.Fragment](resp)
			Expect(f.Speaker).To(BeNil())
			Expect(f.Timestamp).To(BeTemporally(">=", before.Truncate(time.Second)))
		})

		It("rejects empty text", func() {
			resp, err := env.server.app.Test(jsonRequest(http.MethodPost, "/v1/segments", map[string]string{"text": "   "}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(decode[ErrorResponse](resp).Error).To(Equal("text is required"))
			Expect(env.bus.Len()).To(BeZero())
		})

		It("rejects a malformed body", func() {
			req, err := http.NewRequest(http.MethodPost, "/v1/segments", bytes.NewReader([]byte("{not json")))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")

			resp, err := env.server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})
	})

	Describe("GET /v1/segments", func() {
		BeforeEach(func() {
			base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
			for i, text := range []string{"one", "two", "three"} {
				Expect(env.driver.Append(ctx, transcript.New(base.Add(time.Duration(i)*time.Second), "Alice", text))).To(Succeed())
			}
		})

		It("returns stored segments oldest first", func() {
			resp, err := env.server.app.Test(jsonRequest(http.MethodGet, "/v1/segments", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			segments := decode[[]storage.Segment](resp)
			Expect(segments).To(HaveLen(3))
			Expect(segments[0].Text).To(Equal("one"))
			Expect(segments[2].Text).To(Equal("three"))
		})

		It("honors limit", func() {
			resp, err := env.server.app.Test(jsonRequest(http.MethodGet, "/v1/segments?limit=2", nil))
			Expect(err).NotTo(HaveOccurred())

			segments := decode[[]storage.Segment](resp)
			Expect(segments).To(HaveLen(2))
			Expect(segments[0].Text).To(Equal("two"))
		})

		It("rejects a non-positive limit", func() {
			for _, q := range []string{"0", "-3", "abc"} {
				resp, err := env.server.app.Test(jsonRequest(http.MethodGet, "/v1/segments?limit="+q, nil))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest), "limit=%s", q)
			}
		})
	})

	Describe("summaries", func() {
		It("returns an empty list and 404 before the first summary", func() {
			resp, err := env.server.app.Test(jsonRequest(http.MethodGet, "/v1/summaries", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(decode[[]storage.SummaryRecord](resp)).To(BeEmpty())

			resp, err = env.server.app.Test(jsonRequest(http.MethodGet, "/v1/summary", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
		})

		It("returns history and the latest summary", func() {
			Expect(env.driver.AppendSummary(ctx, "first")).To(Succeed())
			Expect(env.driver.AppendSummary(ctx, "second")).To(Succeed())

			resp, err := env.server.app.Test(jsonRequest(http.MethodGet, "/v1/summaries", nil))
			Expect(err).NotTo(HaveOccurred())
			history := decode[[]storage.SummaryRecord](resp)
			Expect(history).To(HaveLen(2))
			Expect(history[1].Text).To(Equal("second"))

			resp, err = env.server.app.Test(jsonRequest(http.MethodGet, "/v1/summary", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(decode[storage.SummaryRecord](resp).Text).To(Equal("second"))
		})
	})

	Describe("GET /v1/status", func() {
		It("reports the loop snapshot and server state", func() {
			env.bus.Put(transcript.New(time.Now(), "", "queued"))

			resp, err := env.server.app.Test(jsonRequest(http.MethodGet, "/v1/status", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			status := decode[map[string]any](resp)
			Expect(status).To(HaveKeyWithValue("running", true))
			Expect(status).To(HaveKeyWithValue("backlog", BeNumerically("==", 1)))
			Expect(status).To(HaveKeyWithValue("subscribers", BeNumerically("==", 1)))
			Expect(status).To(HaveKeyWithValue("provider", "static"))
			Expect(status).To(HaveKeyWithValue("meeting", "standup"))
			Expect(status).To(HaveKeyWithValue("can_switch_model", false))
			Expect(status).To(HaveKeyWithValue("summary", BeNil()))
		})
	})

	Describe("summarizer state", func() {
		It("pauses, broadcasts once, and reports the state", func() {
			paused := false
			resp, err := env.server.app.Test(jsonRequest(http.MethodPost, "/v1/summarizer/state", StateRequest{Running: &paused}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(decode[StateResponse](resp)).To(Equal(StateResponse{Running: false, Changed: true}))
			Expect(env.loop.State().Running()).To(BeFalse())

			resp, err = env.server.app.Test(jsonRequest(http.MethodPost, "/v1/summarizer/state", StateRequest{Running: &paused}))
			Expect(err).NotTo(HaveOccurred())
			Expect(decode[StateResponse](resp).Changed).To(BeFalse())

			Expect(env.received.Strings()).To(Equal([]string{`{"type":"summarizer_state","running":false}`}))

			resp, err = env.server.app.Test(jsonRequest(http.MethodGet, "/v1/summarizer/state", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(decode[StateResponse](resp).Running).To(BeFalse())
		})

		It("requires the running field", func() {
			resp, err := env.server.app.Test(jsonRequest(http.MethodPost, "/v1/summarizer/state", map[string]string{}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(env.loop.State().Running()).To(BeTrue())
		})
	})

	Describe("POST /v1/summarizer/flush", func() {
		It("accepts the request", func() {
			resp, err := env.server.app.Test(jsonRequest(http.MethodPost, "/v1/summarizer/flush", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusAccepted))
		})
	})

	Describe("model", func() {
		It("refuses to switch when the client cannot", func() {
			resp, err := env.server.app.Test(jsonRequest(http.MethodPost, "/v1/model", ModelRequest{Model: "bigger"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusConflict))
			Expect(env.received.Strings()).To(BeEmpty())
		})

		Context("with a switching client", func() {
			var client *switchingClient

			BeforeEach(func() {
				client = &switchingClient{model: "small"}
				env = newTestEnv(client, Deps{})
			})

			It("reports the active model", func() {
				resp, err := env.server.app.Test(jsonRequest(http.MethodGet, "/v1/model", nil))
				Expect(err).NotTo(HaveOccurred())
				Expect(decode[ModelResponse](resp)).To(Equal(ModelResponse{
					Provider:       "fake",
					Model:          "small",
					CanSwitchModel: true,
				}))
			})

			It("switches and broadcasts model_changed", func() {
				resp, err := env.server.app.Test(jsonRequest(http.MethodPost, "/v1/model", ModelRequest{Model: "large"}))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
				Expect(client.Model()).To(Equal("large"))
				Expect(env.received.Strings()).To(Equal([]string{`{"type":"model_changed","model":"large"}`}))
			})

			It("surfaces a rejected model", func() {
				resp, err := env.server.app.Test(jsonRequest(http.MethodPost, "/v1/model", ModelRequest{Model: "unknown"}))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
				Expect(client.Model()).To(Equal("small"))
			})

			It("requires a model name", func() {
				resp, err := env.server.app.Test(jsonRequest(http.MethodPost, "/v1/model", ModelRequest{}))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			})
		})
	})

	Describe("POST /v1/prompt/reload", func() {
		It("conflicts without a prompt store", func() {
			resp, err := env.server.app.Test(jsonRequest(http.MethodPost, "/v1/prompt/reload", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusConflict))
		})

		Context("with a prompt file", func() {
			var path string

			BeforeEach(func() {
				path = filepath.Join(GinkgoT().TempDir(), "prompts.yaml")
				Expect(os.WriteFile(path, []byte("initial: \"Summarize: {{.Transcript}}\"\n"), 0o600)).To(Succeed())

				store, err := prompt.NewStore(path, logger.Nop())
				Expect(err).NotTo(HaveOccurred())
				env = newTestEnv(nil, Deps{Prompts: store})
			})

			It("reloads and broadcasts prompt_changed", func() {
				Expect(os.WriteFile(path, []byte("initial: \"Minutes: {{.Transcript}}\"\n"), 0o600)).To(Succeed())

				resp, err := env.server.app.Test(jsonRequest(http.MethodPost, "/v1/prompt/reload", nil))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(fiber.StatusNoContent))
				Expect(env.server.deps.Prompts.Templates().Initial).To(Equal("Minutes: {{.Transcript}}"))
				Expect(env.received.Strings()).To(Equal([]string{`{"type":"prompt_changed"}`}))
			})

			It("keeps the active templates when the file is invalid", func() {
				Expect(os.WriteFile(path, []byte("initial: \"{{.Transcript\"\n"), 0o600)).To(Succeed())

				resp, err := env.server.app.Test(jsonRequest(http.MethodPost, "/v1/prompt/reload", nil))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(fiber.StatusUnprocessableEntity))
				Expect(env.server.deps.Prompts.Templates().Initial).To(Equal("Summarize: {{.Transcript}}"))
				Expect(env.received.Strings()).To(BeEmpty())
			})
		})
	})
})
