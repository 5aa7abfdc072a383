package summary_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/papercomputeco/minutes/pkg/llm"
	"github.com/papercomputeco/minutes/pkg/storage/inmemory"
	"github.com/papercomputeco/minutes/pkg/summary"
	"github.com/papercomputeco/minutes/pkg/transcript"
)

// fakeClock is a manually advanced summary.Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// scriptedLLM records prompts and answers with respond.
type scriptedLLM struct {
	mu      sync.Mutex
	prompts []string
	respond func(call int, prompt string) (*llm.Reply, error)
}

func replyWith(text string) func(int, string) (*llm.Reply, error) {
	return func(int, string) (*llm.Reply, error) {
		return &llm.Reply{Content: text, Model: "scripted"}, nil
	}
}

func (s *scriptedLLM) Complete(_ context.Context, prompt string, history []llm.Message) (*llm.Reply, error) {
	if history != nil {
		return nil, errors.New("summary loop must not pass history")
	}

	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	call := len(s.prompts)
	respond := s.respond
	s.mu.Unlock()

	return respond(call, prompt)
}

func (s *scriptedLLM) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func (s *scriptedLLM) Prompt(i int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompts[i]
}

// recordingStore wraps the in-memory driver and can fail appends on demand.
type recordingStore struct {
	*inmemory.Driver

	mu         sync.Mutex
	failAppend bool
}

func newRecordingStore() *recordingStore {
	return &recordingStore{Driver: inmemory.NewDriver()}
}

func (r *recordingStore) Append(ctx context.Context, f transcript.Fragment) error {
	r.mu.Lock()
	fail := r.failAppend
	r.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return r.Driver.Append(ctx, f)
}

func (r *recordingStore) SetFailAppend(fail bool) {
	r.mu.Lock()
	r.failAppend = fail
	r.mu.Unlock()
}

func (r *recordingStore) Texts() []string {
	segs, _ := r.Segments(context.Background(), 0)
	out := make([]string, 0, len(segs))
	for _, s := range segs {
		out = append(out, s.Text)
	}
	return out
}

func (r *recordingStore) SummaryTexts() []string {
	recs, _ := r.Summaries(context.Background(), 0)
	out := make([]string, 0, len(recs))
	for _, s := range recs {
		out = append(out, s.Text)
	}
	return out
}

// recordingSink captures summaries and fragments.
type recordingSink struct {
	mu        sync.Mutex
	results   []summary.Result
	fragments []transcript.Fragment
}

func (r *recordingSink) OnSummary(_ context.Context, res summary.Result) {
	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()
}

func (r *recordingSink) OnFragment(_ context.Context, f transcript.Fragment) {
	r.mu.Lock()
	r.fragments = append(r.fragments, f)
	r.mu.Unlock()
}

func (r *recordingSink) Results() []summary.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]summary.Result(nil), r.results...)
}

func (r *recordingSink) Fragments() []transcript.Fragment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transcript.Fragment(nil), r.fragments...)
}
