// Package state tracks the agent's current-stage stack and active
// per-stage errors, and provides the Observer scoped-guard used by
// every background loop to classify and react to errors uniformly.
package state

import (
	"fmt"
	"sync"
	"time"
)

// Error is a single active error attributed to a stage, keyed by the
// combination of the two so a later error at the same stage with the
// same message replaces rather than duplicates it.
type Error struct {
	UpdatedAt time.Time
	Stage     string
	Message   string
}

func (e Error) key() string {
	return e.Stage + "\x00" + e.Message
}

// State holds the set of currently active errors and the stack of
// stage names the caller is nested inside of.
type State struct {
	mu     sync.Mutex
	errors map[string]Error
	order  []string
	stack  []string
}

// New returns an empty State.
func New() *State {
	return &State{errors: make(map[string]Error)}
}

// Ok reports whether there are no active errors.
func (s *State) Ok() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errors) == 0
}

// CurrentErrors returns the active errors in the order they were first
// recorded.
func (s *State) CurrentErrors() []Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Error, 0, len(s.order))
	for _, k := range s.order {
		if e, ok := s.errors[k]; ok {
			out = append(out, e)
		}
	}
	return out
}

// GetSummaryMessage joins every active error's message, one per line,
// in insertion order.
func (s *State) GetSummaryMessage() string {
	errs := s.CurrentErrors()
	out := ""
	for i, e := range errs {
		if i > 0 {
			out += "\n"
		}
		out += formatError(e)
	}
	return out
}

// CurrentState returns a snapshot of the stage stack, outermost first.
func (s *State) CurrentState() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.stack))
	copy(out, s.stack)
	return out
}

// Error records err as an active error for stage.
func (s *State) Error(stage string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := Error{UpdatedAt: time.Now(), Stage: stage, Message: err.Error()}
	k := e.key()
	if _, exists := s.errors[k]; !exists {
		s.order = append(s.order, k)
	}
	s.errors[k] = e
}

// Cleanup discards every active error attributed to stage.
func (s *State) Cleanup(stage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.errors {
		if e.Stage == stage {
			delete(s.errors, k)
		}
	}
	kept := s.order[:0]
	for _, k := range s.order {
		if _, exists := s.errors[k]; exists {
			kept = append(kept, k)
		}
	}
	s.order = kept
}

// EnterState pushes name onto the stage stack and returns a function
// that pops it; callers use it with defer to bracket a scope, the Go
// equivalent of the Python enter_state context manager.
func (s *State) EnterState(name string) func() {
	s.mu.Lock()
	s.stack = append(s.stack, name)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		if n := len(s.stack); n > 0 {
			s.stack = s.stack[:n-1]
		}
		s.mu.Unlock()
	}
}

// IsAlive reports whether the agent is currently inside any tracked
// stage.
func (s *State) IsAlive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stack) > 0
}

func formatError(e Error) string {
	return fmt.Sprintf("%s", e.Message)
}
