package summary

import "sync/atomic"

// RunState is the Running/Paused flag read by the loop each cycle. It gates
// summarization only; ingestion and persistence continue while paused.
type RunState struct {
	running atomic.Bool
}

// NewRunState creates a RunState in the given state.
func NewRunState(running bool) *RunState {
	s := &RunState{}
	s.running.Store(running)
	return s
}

// Running reports whether summarization is enabled.
func (s *RunState) Running() bool {
	return s.running.Load()
}

// Set changes the state and reports whether it actually changed.
func (s *RunState) Set(running bool) bool {
	return s.running.Swap(running) != running
}
