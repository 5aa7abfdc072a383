// Package summary implements the summarization loop: it drains the fragment
// bus, persists every fragment, and on a fixed cadence asks the language
// model for an updated rolling summary.
package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/papercomputeco/minutes/pkg/llm"
	"github.com/papercomputeco/minutes/pkg/prompt"
	"github.com/papercomputeco/minutes/pkg/storage"
	"github.com/papercomputeco/minutes/pkg/transcript"
)

// Defaults applied by NewLoop to zero Config fields.
const (
	// DefaultPollInterval bounds each wait on the source, so the interval is
	// checked even when no fragments arrive.
	DefaultPollInterval  = 1 * time.Second

	// DefaultInterval is the minimum time between summarize steps.
	DefaultInterval = 15 * time.Second

	// DefaultErrorCooldown is the pause after a cycle fails outside the
	// summarize step.
	DefaultErrorCooldown = 1 * time.Second

	// DefaultBacklogWarn is the bus length above which a warning is logged.
	DefaultBacklogWarn = 500
)

// Source is the consumer side of the fragment bus.
type Source interface {
	Get(ctx context.Context) (transcript.Fragment, error)
	Len() int
}

// Prompter renders the summarization prompt. previous is nil before the first
// successful summary.
type Prompter interface {
	Build(previous *string, batch []transcript.Fragment) string
}

// Config configures a Loop. Source, LLM, and Storage are required.
type Config struct {
	Source  Source
	LLM     llm.Client
	Storage storage.Driver

	// State defaults to Running.
	State *RunState

	// Prompter defaults to the built-in templates.
	Prompter Prompter

	// Sink receives new summaries; FragmentSink receives persisted fragments.
	Sink         Sink
	FragmentSink FragmentSink

	Clock  Clock
	Logger *slog.Logger

	PollInterval  time.Duration
	Interval      time.Duration
	ErrorCooldown time.Duration

	// BacklogWarn logs a warning when the bus holds more fragments than this.
	// Zero uses the default; negative disables the warning.
	BacklogWarn int

	// RetainFailedBatch keeps the batch after a failed summarize attempt so
	// the next attempt covers it. By default a failed batch is discarded.
	RetainFailedBatch bool

	// InitialSummary seeds the rolling summary, typically from
	// storage.Driver.LatestSummary after a restart.
	InitialSummary *string
}

// Snapshot is a point-in-time copy of the loop's observable state.
type Snapshot struct {
	Summary         *string   `json:"summary"`
	LastSummaryTime time.Time `json:"last_summary_time"`
	Pending         int       `json:"pending"`
	Running         bool      `json:"running"`
	Model           string    `json:"model,omitempty"`
	Summaries       int       `json:"summaries"`
	Failures        int       `json:"failures"`
}

// Loop is the single consumer of the fragment bus.
type Loop struct {
	source   Source
	client   llm.Client
	caps     llm.Caps
	store    storage.Driver
	state    *RunState
	prompter Prompter
	sink     Sink
	fragSink FragmentSink
	clock    Clock
	logger   *slog.Logger

	pollInterval  time.Duration
	interval      time.Duration
	errorCooldown time.Duration
	backlogWarn   int
	retainFailed  bool

	flush chan struct{}

	// batch and lastBacklogWarn are touched only by the Run goroutine.
	batch           []transcript.Fragment
	lastBacklogWarn time.Time

	// mu guards the fields exposed through Snapshot.
	mu          sync.RWMutex
	current     *string
	lastSummary time.Time
	pending     int
	summaries   int
	failures    int
}

// NewLoop validates c and applies defaults.
func NewLoop(c Config) (*Loop, error) {
	if c.Source == nil {
		return nil, errors.New("summary loop requires a fragment source")
	}
	if c.LLM == nil {
		return nil, errors.New("summary loop requires an llm client")
	}
	if c.Storage == nil {
		return nil, errors.New("summary loop requires a storage driver")
	}

	if c.State == nil {
		c.State = NewRunState(true)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Prompter == nil {
		store, err := prompt.NewStore("", c.Logger)
		if err != nil {
			return nil, fmt.Errorf("loading built-in prompts: %w", err)
		}
		c.Prompter = store
	}
	if c.Sink == nil {
		c.Sink = NopSink{}
	}
	if c.FragmentSink == nil {
		c.FragmentSink = NopSink{}
	}
	if c.Clock == nil {
		c.Clock = SystemClock()
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.ErrorCooldown <= 0 {
		c.ErrorCooldown = DefaultErrorCooldown
	}
	if c.BacklogWarn == 0 {
		c.BacklogWarn = DefaultBacklogWarn
	}

	var current *string
	if c.InitialSummary != nil {
		s := *c.InitialSummary
		current = &s
	}

	return &Loop{
		source:        c.Source,
		client:        c.LLM,
		caps:          llm.Capabilities(c.LLM),
		store:         c.Storage,
		state:         c.State,
		prompter:      c.Prompter,
		sink:          c.Sink,
		fragSink:      c.FragmentSink,
		clock:         c.Clock,
		logger:        c.Logger,
		pollInterval:  c.PollInterval,
		interval:      c.Interval,
		errorCooldown: c.ErrorCooldown,
		backlogWarn:   c.BacklogWarn,
		retainFailed:  c.RetainFailedBatch,
		flush:         make(chan struct{}, 1),
		current:       current,
	}, nil
}

// State returns the run state the loop reads each cycle.
func (l *Loop) State() *RunState {
	return l.state
}

// Snapshot returns a copy of the current summary state.
func (l *Loop) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap := Snapshot{
		LastSummaryTime: l.lastSummary,
		Pending:         l.pending,
		Running:         l.state.Running(),
		Model:           l.caps.Model(),
		Summaries:       l.summaries,
		Failures:        l.failures,
	}
	if l.current != nil {
		s := *l.current
		snap.Summary = &s
	}
	return snap
}

// SummarizeNow asks the loop to summarize on its next cycle regardless of
// the interval. The loop must still be Running with a non-empty batch.
func (l *Loop) SummarizeNow() {
	select {
	case l.flush <- struct{}{}:
	default:
	}
}

// Run consumes the source until ctx is done and returns ctx.Err(). Errors and
// panics inside a cycle are logged and followed by the error cooldown.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	l.lastSummary = l.clock.Now()
	l.mu.Unlock()

	l.logger.Info("summary loop started",
		"interval", l.interval,
		"poll_interval", l.pollInterval,
		"running", l.state.Running(),
		"model", l.caps.Model(),
	)

	for {
		if err := ctx.Err(); err != nil {
			l.logger.Info("summary loop stopped", "pending", len(l.batch))
			return err
		}

		if err := l.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			l.logger.Error("summary cycle failed", "error", err, "cooldown", l.errorCooldown)

			select {
			case <-ctx.Done():
			case <-time.After(l.errorCooldown):
			}
		}
	}
}

func (l *Loop) cycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in summary cycle: %v", r)
		}
	}()

	pollCtx, cancel := context.WithTimeout(ctx, l.pollInterval)
	f, getErr := l.source.Get(pollCtx)
	cancel()

	switch {
	case getErr == nil:
		if err := l.ingest(ctx, f); err != nil {
			return err
		}
	case ctx.Err() != nil:
		return nil
	case errors.Is(getErr, context.DeadlineExceeded):
		// idle poll
	default:
		return fmt.Errorf("reading fragment: %w", getErr)
	}

	l.checkBacklog()

	if !l.state.Running() || len(l.batch) == 0 {
		return nil
	}

	forced := false
	select {
	case <-l.flush:
		forced = true
	default:
	}

	l.mu.RLock()
	elapsed := l.clock.Now().Sub(l.lastSummary)
	l.mu.RUnlock()

	if forced || elapsed >= l.interval {
		l.summarize(ctx)
	}
	return nil
}

// ingest persists f and only then adds it to the batch.
func (l *Loop) ingest(ctx context.Context, f transcript.Fragment) error {
	if err := l.store.Append(ctx, f); err != nil {
		return fmt.Errorf("persisting fragment: %w", err)
	}

	l.batch = append(l.batch, f)
	l.setPending(len(l.batch))

	l.fragSink.OnFragment(ctx, f)
	return nil
}

func (l *Loop) summarize(ctx context.Context) {
	l.mu.RLock()
	previous := l.current
	l.mu.RUnlock()

	promptText := l.prompter.Build(previous, l.batch)
	n := len(l.batch)
	started := l.clock.Now()

	reply, err := l.complete(ctx, promptText)
	if err == nil && (reply == nil || reply.Content == "") {
		err = llm.ErrEmptyReply
	}

	now := l.clock.Now()
	if err != nil {
		if ctx.Err() != nil {
			return
		}

		l.logger.Warn("summarize step failed",
			"error", err,
			"kind", llm.KindOf(err).String(),
			"fragment_count", n,
			"retained", l.retainFailed,
		)

		if !l.retainFailed {
			l.batch = nil
		}
		l.mu.Lock()
		l.lastSummary = now
		l.pending = len(l.batch)
		l.failures++
		l.mu.Unlock()
		return
	}

	text := reply.Content
	l.batch = nil
	l.mu.Lock()
	l.current = &text
	l.lastSummary = now
	l.pending = 0
	l.summaries++
	l.mu.Unlock()

	l.logger.Info("summary updated",
		"fragment_count", n,
		"model", reply.Model,
		"tokens_used", reply.TokensUsed,
		"duration", now.Sub(started),
	)

	if err := l.store.AppendSummary(ctx, text); err != nil {
		l.logger.Error("persisting summary failed", "error", err)
	}

	l.sink.OnSummary(ctx, Result{
		Text:       text,
		Model:      reply.Model,
		TokensUsed: reply.TokensUsed,
		Fragments:  n,
		At:         now,
	})
}

// complete calls the client and reports a panic inside it as a transient
// failure, so it is charged to the interval like any other failed step.
func (l *Loop) complete(ctx context.Context, promptText string) (reply *llm.Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			reply = nil
			err = llm.Transient(l.caps.Provider, fmt.Errorf("panic: %v", r))
		}
	}()
	return l.client.Complete(ctx, promptText, nil)
}

func (l *Loop) checkBacklog() {
	if l.backlogWarn < 0 {
		return
	}
	backlog := l.source.Len()
	if backlog <= l.backlogWarn {
		return
	}

	now := l.clock.Now()
	if !l.lastBacklogWarn.IsZero() && now.Sub(l.lastBacklogWarn) < l.interval {
		return
	}
	l.lastBacklogWarn = now
	l.logger.Warn("fragment backlog growing", "backlog", backlog, "threshold", l.backlogWarn)
}

func (l *Loop) setPending(n int) {
	l.mu.Lock()
	l.pending = n
	l.mu.Unlock()
}
