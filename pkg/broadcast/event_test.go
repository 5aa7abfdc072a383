package broadcast_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/minutes/pkg/broadcast"
	"github.com/papercomputeco/minutes/pkg/transcript"
)

var _ = Describe("Event envelopes", func() {
	encode := func(ev broadcast.Event) string {
		data, err := json.Marshal(ev)
		Expect(err).NotTo(HaveOccurred())
		return string(data)
	}

	It("carries the fragment for segment events", func() {
		ts := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
		f := transcript.New(ts, "Bob", "Revenue is up 15%.")

		Expect(encode(broadcast.SegmentEvent(f))).To(MatchJSON(`{
			"type": "segment",
			"segment": {"timestamp": "2026-03-02T09:00:00Z", "text": "Revenue is up 15%.", "speaker": "Bob"}
		}`))
	})

	It("encodes an unknown speaker as null", func() {
		f := transcript.New(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), "", "hello")
		Expect(encode(broadcast.SegmentEvent(f))).To(ContainSubstring(`"speaker":null`))
	})

	It("sets only the summary field for summary events", func() {
		Expect(encode(broadcast.SummaryEvent("## Decisions"))).To(MatchJSON(`{"type":"summary","summary":"## Decisions"}`))
	})

	It("keeps running=false in state events", func() {
		Expect(encode(broadcast.SummarizerStateEvent(false))).To(MatchJSON(`{"type":"summarizer_state","running":false}`))
	})

	It("encodes model and prompt changes", func() {
		Expect(encode(broadcast.ModelChangedEvent("llama3.2"))).To(MatchJSON(`{"type":"model_changed","model":"llama3.2"}`))
		Expect(encode(broadcast.PromptChangedEvent())).To(MatchJSON(`{"type":"prompt_changed"}`))
	})
})
