package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/minutes/pkg/eventstream"
)

var _ = Describe("Event", func() {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.FixedZone("CET", 3600))

	It("stamps new events", func() {
		ev := eventstream.NewSummaryEvent("standup", "All good.", "gpt-4o-mini", 4, now)
		Expect(ev.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(ev.EventType).To(Equal(eventstream.EventTypeSummaryProduced))
		Expect(ev.EventID).NotTo(BeEmpty())
		Expect(ev.EmittedAt.Location()).To(Equal(time.UTC))
		Expect(ev.EmittedAt.Equal(now)).To(BeTrue())

		other := eventstream.NewSummaryEvent("standup", "All good.", "gpt-4o-mini", 4, now)
		Expect(other.EventID).NotTo(Equal(ev.EventID))
	})

	It("marshals with the expected top-level keys", func() {
		payload, err := json.Marshal(eventstream.NewSummaryEvent("standup", "All good.", "gpt-4o-mini", 4, now))
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKeyWithValue("schema_version", BeNumerically("==", 1)))
		Expect(got).To(HaveKeyWithValue("event_type", "minutes.summary.produced"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKeyWithValue("emitted_at", "2026-03-02T09:00:00Z"))
		Expect(got).To(HaveKeyWithValue("meeting", "standup"))
		Expect(got).To(HaveKeyWithValue("summary", "All good."))
		Expect(got).To(HaveKeyWithValue("model", "gpt-4o-mini"))
		Expect(got).To(HaveKeyWithValue("fragment_count", BeNumerically("==", 4)))
		Expect(got).NotTo(HaveKey("tokens_used"))
	})

	It("provides ErrNilEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilEvent).To(MatchError("nil summary event"))
	})
})
