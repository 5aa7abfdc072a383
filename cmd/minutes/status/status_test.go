package statuscmder_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	statuscmder "github.com/papercomputeco/minutes/cmd/minutes/status"
)

var _ = Describe("NewStatusCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := statuscmder.NewStatusCmd()
		Expect(cmd.Use).To(Equal("status"))
	})

	It("rejects any arguments", func() {
		cmd := statuscmder.NewStatusCmd()
		Expect(cmd.Args(cmd, []string{})).To(Succeed())
		Expect(cmd.Args(cmd, []string{"extra"})).NotTo(Succeed())
	})

	It("has an --api-target flag", func() {
		cmd := statuscmder.NewStatusCmd()
		f := cmd.Flags().Lookup("api-target")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal("http://localhost:8090"))
	})
})

var _ = Describe("Status command execution", func() {
	var (
		server    *httptest.Server
		configDir string
		out       *bytes.Buffer
	)

	BeforeEach(func() {
		var err error
		configDir, err = os.MkdirTemp("", "minutes-status-test-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, configDir)

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/status" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"summary":           "## Decisions\n- ship it",
				"last_summary_time": "2026-03-02T09:00:00Z",
				"pending":           2,
				"running":           false,
				"model":             "llama3.2",
				"summaries":         3,
				"failures":          1,
				"backlog":           5,
				"subscribers":       1,
				"provider":          "ollama",
				"meeting":           "standup",
				"can_switch_model":  true,
			})
		}))
		DeferCleanup(server.Close)

		out = &bytes.Buffer{}
	})

	run := func(args ...string) error {
		cmd := statuscmder.NewStatusCmd()
		cmd.PersistentFlags().String("config-dir", "", "Override path to .minutes/ config directory")
		cmd.SetOut(out)
		cmd.SetArgs(append(args, "--config-dir", configDir, "--api-target", server.URL))
		return cmd.Execute()
	}

	It("prints the server state", func() {
		Expect(run()).To(Succeed())

		Expect(out.String()).To(ContainSubstring("standup"))
		Expect(out.String()).To(ContainSubstring("paused"))
		Expect(out.String()).To(ContainSubstring("ollama / llama3.2"))
		Expect(out.String()).To(ContainSubstring("3 (1 failed)"))
		Expect(out.String()).To(ContainSubstring("ship it"))
	})

	It("prints raw JSON", func() {
		Expect(run("--json")).To(Succeed())

		var got map[string]any
		Expect(json.Unmarshal(out.Bytes(), &got)).To(Succeed())
		Expect(got).To(HaveKeyWithValue("backlog", BeNumerically("==", 5)))
		Expect(got).To(HaveKeyWithValue("meeting", "standup"))
	})

	It("fails when the server is unreachable", func() {
		cmd := statuscmder.NewStatusCmd()
		cmd.PersistentFlags().String("config-dir", "", "Override path to .minutes/ config directory")
		cmd.SetOut(out)
		cmd.SetArgs([]string{"--config-dir", configDir, "--api-target", "http://127.0.0.1:1"})

		Expect(cmd.Execute()).To(MatchError(ContainSubstring("failed to connect")))
	})
})
