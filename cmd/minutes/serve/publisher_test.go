package servecmder

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/minutes/pkg/eventstream/kafka"
	"github.com/papercomputeco/minutes/pkg/eventstream/nop"
	"github.com/papercomputeco/minutes/pkg/logger"
	"github.com/papercomputeco/minutes/pkg/summary"
)

var _ = Describe("summary event publishing", func() {
	var c *serveCommander

	BeforeEach(func() {
		c = &serveCommander{meeting: "standup", kafkaTopic: "minutes.summaries", logger: logger.Nop()}
	})

	It("discards events when no brokers are configured", func() {
		publisher, err := c.newPublisher()
		Expect(err).NotTo(HaveOccurred())
		Expect(publisher).To(BeAssignableToTypeOf(&nop.Publisher{}))
	})

	It("publishes to Kafka when brokers are configured", func() {
		c.kafkaBrokers = []string{"localhost:9092"}
		publisher, err := c.newPublisher()
		Expect(err).NotTo(HaveOccurred())
		Expect(publisher).To(BeAssignableToTypeOf(&kafka.Publisher{}))
		Expect(publisher.Close()).To(Succeed())
	})

	It("runs the pool over the discarding publisher", func() {
		pool, err := c.newPublisherPool()
		Expect(err).NotTo(HaveOccurred())

		pool.OnSummary(context.Background(), summary.Result{Text: "- shipped", At: time.Now()})
		Expect(pool.Close()).To(Succeed())
	})
})
