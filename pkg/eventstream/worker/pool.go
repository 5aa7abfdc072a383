// Package worker provides an asynchronous worker pool that publishes summary
// events through an eventstream.Publisher.
//
// The pool decouples broker round trips from the summary loop so that a slow
// or unavailable broker never delays the next summarization cycle. Each worker
// owns a queue and events are routed by meeting, so events for one meeting are
// published one at a time in the order they were enqueued.
package worker

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/minutes/pkg/eventstream"
	"github.com/papercomputeco/minutes/pkg/summary"
)

var (
	defaultNumWorkers     uint = 1
	defaultJobQueueSize   uint = 256
	defaultPublishTimeout      = 15 * time.Second
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Event *eventstream.SummaryEvent
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher receives every event.
	Publisher eventstream.Publisher

	// Meeting is stamped onto events built from summaries.
	Meeting string

	// NumWorkers is the number of background workers in the pool. Events for
	// different meetings may be published concurrently by different workers.
	NumWorkers uint

	// QueueSize is the capacity of each worker's job channel (defaults to 256).
	QueueSize uint

	// PublishTimeout bounds each Publish call (defaults to 15s).
	PublishTimeout time.Duration

	Logger *slog.Logger
}

// Pool publishes events asynchronously via a worker pool.
type Pool struct {
	config *Config
	queues []chan Job
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, fmt.Errorf("worker pool requires a publisher")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.PublishTimeout == 0 {
		c.PublishTimeout = defaultPublishTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	wp := &Pool{
		config: c,
		queues: make([]chan Job, c.NumWorkers),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		wp.queues[i] = make(chan Job, c.QueueSize)
		go wp.worker(i, wp.queues[i])
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queueFor(job.Event.Meeting) <- job:
		p.logger.Debug("event queued", "event_id", job.Event.EventID)
		return true
	default:
		p.logger.Error("event not queued, queue full, event dropped",
			"event_id", job.Event.EventID,
			"meeting", job.Event.Meeting,
		)
		return false
	}
}

// queueFor picks the worker queue that owns meeting.
func (p *Pool) queueFor(meeting string) chan Job {
	if len(p.queues) == 1 {
		return p.queues[0]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(meeting))
	return p.queues[h.Sum32()%uint32(len(p.queues))]
}

// OnSummary builds a SummaryEvent from r and enqueues it.
func (p *Pool) OnSummary(_ context.Context, r summary.Result) {
	ev := eventstream.NewSummaryEvent(p.config.Meeting, r.Text, r.Model, r.Fragments, r.At)
	ev.TokensUsed = r.TokensUsed
	p.Enqueue(Job{Event: ev})
}

// Close signals workers to stop, waits for in-flight jobs to drain, and
// closes the publisher. Call this after the summary loop has stopped.
func (p *Pool) Close() error {
	for _, q := range p.queues {
		close(q)
	}
	p.wg.Wait()
	return p.config.Publisher.Close()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint, queue <-chan Job) {
	defer p.wg.Done()
	p.logger.Debug("publish worker started", "worker_id", id)

	for job := range queue {
		p.processJob(job)
	}

	p.logger.Debug("publish worker stopped", "worker_id", id)
}

func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishTimeout)
	defer cancel()

	if err := p.config.Publisher.Publish(ctx, job.Event); err != nil {
		p.logger.Error("summary event publish failed",
			"event_id", job.Event.EventID,
			"meeting", job.Event.Meeting,
			"error", err,
		)
		return
	}

	p.logger.Debug("summary event published",
		"event_id", job.Event.EventID,
		"meeting", job.Event.Meeting,
	)
}

var _ summary.Sink = (*Pool)(nil)
