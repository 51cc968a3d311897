package engine

import (
	"sync"
	"sync/atomic"
)

// RunState is the stop/running pair shared by the runner, the watchdog and
// external callers. Reads and writes are atomic.
type RunState struct {
	stopRequested atomic.Bool
	running       atomic.Bool

	mu     sync.Mutex
	reason string
}

// RequestStop raises the stop flag and clears running. It returns true only
// for the caller that raised the flag, so one-shot reactions can key off it.
func (s *RunState) RequestStop(reason string) bool {
	won := s.stopRequested.CompareAndSwap(false, true)
	if won {
		s.mu.Lock()
		s.reason = reason
		s.mu.Unlock()
	}
	s.running.Store(false)
	return won
}

// StopRequested reports whether a stop has been requested for this run.
func (s *RunState) StopRequested() bool {
	return s.stopRequested.Load()
}

// StopReason is the reason passed by the winning RequestStop call.
func (s *RunState) StopReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Running reports whether a run is in progress.
func (s *RunState) Running() bool {
	return s.running.Load()
}

func (s *RunState) reset() {
	s.mu.Lock()
	s.reason = ""
	s.mu.Unlock()
	s.stopRequested.Store(false)
	s.running.Store(true)
}

func (s *RunState) finish() {
	s.running.Store(false)
}
