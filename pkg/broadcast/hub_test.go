package broadcast_test

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/minutes/pkg/broadcast"
	"github.com/papercomputeco/minutes/pkg/logger"
)

// recorder is a Subscriber that stores what it receives and can be told to fail.
type recorder struct {
	id     string
	fail   bool
	mu     sync.Mutex
	got    [][]byte
	closed atomic.Bool
}

func (r *recorder) ID() string { return r.id }

func (r *recorder) Send(data []byte) error {
	if r.fail {
		return errors.New("connection reset")
	}
	r.mu.Lock()
	r.got = append(r.got, data)
	r.mu.Unlock()
	return nil
}

func (r *recorder) Close() error {
	r.closed.Store(true)
	return nil
}

func (r *recorder) Received() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

var _ = Describe("Hub", func() {
	var hub *broadcast.Hub

	BeforeEach(func() {
		hub = broadcast.NewHub(logger.Nop())
	})

	It("delivers to every healthy subscriber and removes exactly the failing one", func() {
		const n = 5
		subs := make([]*recorder, n)
		for i := range subs {
			subs[i] = &recorder{id: fmt.Sprintf("sub-%d", i), fail: i == 2}
			hub.Register(subs[i])
		}
		Expect(hub.Len()).To(Equal(n))

		delivered := hub.Broadcast(broadcast.SummaryEvent("hello"))
		Expect(delivered).To(Equal(n - 1))
		Expect(hub.Len()).To(Equal(n - 1))

		for i, s := range subs {
			if i == 2 {
				Expect(s.Received()).To(BeZero())
				Expect(s.closed.Load()).To(BeTrue())
				continue
			}
			Expect(s.Received()).To(Equal(1))
		}

		Expect(hub.Broadcast(broadcast.SummaryEvent("again"))).To(Equal(n - 1))
	})

	It("allows registration while a broadcast pass is running", func() {
		entered := make(chan struct{})
		release := make(chan struct{})
		blocking := broadcast.NewFuncSubscriber(func([]byte) error {
			close(entered)
			<-release
			return nil
		})
		hub.Register(blocking)

		result := make(chan int, 1)
		go func() { result <- hub.Broadcast(broadcast.PromptChangedEvent()) }()

		Eventually(entered).Should(BeClosed())
		late := &recorder{id: "late"}
		hub.Register(late)
		Expect(hub.Len()).To(Equal(2))

		close(release)
		Eventually(result).Should(Receive(Equal(1)))
		Expect(late.Received()).To(BeZero())
	})

	It("unregisters by id", func() {
		r := &recorder{id: "one"}
		hub.Register(r)
		hub.Unregister("one")
		hub.Unregister("missing")
		Expect(hub.Len()).To(BeZero())
		Expect(hub.Broadcast(broadcast.SummaryEvent("x"))).To(BeZero())
	})

	It("serializes the event once for all subscribers", func() {
		var payloads [][]byte
		var mu sync.Mutex
		for range 3 {
			hub.Register(broadcast.NewFuncSubscriber(func(data []byte) error {
				mu.Lock()
				payloads = append(payloads, data)
				mu.Unlock()
				return nil
			}))
		}

		hub.Broadcast(broadcast.SummarizerStateEvent(false))
		Expect(payloads).To(HaveLen(3))
		Expect(&payloads[0][0]).To(BeIdenticalTo(&payloads[1][0]))
		Expect(string(payloads[0])).To(Equal(`{"type":"summarizer_state","running":false}`))
	})

	It("drops a slow subscriber without blocking the others", func() {
		slow := broadcast.NewStreamSubscriber(1)
		fast := &recorder{id: "fast"}
		hub.Register(slow)
		hub.Register(fast)

		Expect(hub.Broadcast(broadcast.SummaryEvent("1"))).To(Equal(2))

		start := time.Now()
		Expect(hub.Broadcast(broadcast.SummaryEvent("2"))).To(Equal(1))
		Expect(time.Since(start)).To(BeNumerically("<", time.Second))
		Expect(hub.Len()).To(Equal(1))
		Expect(fast.Received()).To(Equal(2))

		Expect(slow.Send([]byte("3"))).To(MatchError(broadcast.ErrSubscriberClosed))
	})

	It("reports how many messages a dropped subscriber still had queued", func() {
		var logs bytes.Buffer
		hub := broadcast.NewHub(logger.New(logger.WithJSON(true), logger.WithWriter(&logs)))
		slow := broadcast.NewStreamSubscriber(2)
		hub.Register(slow)

		hub.Broadcast(broadcast.SummaryEvent("1"))
		hub.Broadcast(broadcast.SummaryEvent("2"))
		Expect(hub.Broadcast(broadcast.SummaryEvent("3"))).To(BeZero())

		Expect(logs.String()).To(ContainSubstring(`"msg":"dropping subscriber"`))
		Expect(logs.String()).To(ContainSubstring(`"pending":2`))
	})
})
