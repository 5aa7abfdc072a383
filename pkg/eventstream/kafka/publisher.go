// Package kafka publishes summary events to a Kafka topic, keyed by meeting
// so every summary for one meeting lands on the same partition in order.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/minutes/pkg/eventstream"
)

// DefaultWriteTimeout bounds a single produce call.
const DefaultWriteTimeout = 10 * time.Second

// Config is the configuration for a Kafka Publisher.
type Config struct {
	// Brokers is the list of bootstrap broker addresses ("host:port").
	Brokers []string

	// Topic receives the events.
	Topic string

	// WriteTimeout bounds each write. Defaults to DefaultWriteTimeout.
	WriteTimeout time.Duration
}

// messageWriter is the subset of *kafkago.Writer used by the publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes SummaryEvents as JSON messages.
type Publisher struct {
	writer messageWriter
	topic  string
}

// NewPublisher validates c and creates a publisher. No connection is made
// until the first Publish.
func NewPublisher(c Config) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	if c.Topic == "" {
		return nil, errors.New("kafka: topic is required")
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
		WriteTimeout:           c.WriteTimeout,
	}

	return &Publisher{writer: w, topic: c.Topic}, nil
}

// Publish encodes event and writes it synchronously.
func (p *Publisher) Publish(ctx context.Context, event *eventstream.SummaryEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding summary event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.Meeting),
		Value: payload,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing to kafka topic %q: %w", p.topic, err)
	}
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
