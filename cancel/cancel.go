// Package cancel provides a two-level cancellation signal shared
// across the agent's background loops, replacing ad-hoc stop channels
// with a single object that distinguishes a graceful shutdown request
// from a forced one.
package cancel

import (
	"sync"

	"github.com/ulta-agent/ulta/errors"
)

// Type orders cancellation severity. Higher values never downgrade a
// lower one already in effect.
type Type int

const (
	NotSet Type = iota
	Graceful
	Forced
)

func (t Type) String() string {
	switch t {
	case Graceful:
		return "GRACEFUL"
	case Forced:
		return "FORCED"
	default:
		return "NOT_SET"
	}
}

// Request is returned by RaiseOnSet once a cancellation of at least the
// requested severity has been notified.
type Request struct {
	reason string
}

func (r *Request) Error() string {
	return r.reason
}

// Cancellation is a monotonic, concurrency-safe cancellation flag with
// two severities. Once notified at a given level it never reports a
// lower one, even if Notify is called again with a lesser level.
type Cancellation struct {
	mu          sync.Mutex
	currentType Type
	reason      string
}

// New returns a Cancellation with no cancellation in effect.
func New() *Cancellation {
	return &Cancellation{}
}

// Notify raises the cancellation to level, recording reason. If level is
// not above the current level the severity is left unchanged, but the
// reason is always updated to the latest call.
func (c *Cancellation) Notify(reason string, level Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if level > c.currentType {
		c.currentType = level
	}
	c.reason = reason
}

// NotifyGraceful is shorthand for Notify(reason, Graceful).
func (c *Cancellation) NotifyGraceful(reason string) {
	c.Notify(reason, Graceful)
}

// IsSet reports whether the cancellation has reached at least level.
func (c *Cancellation) IsSet(level Type) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentType >= level
}

// RaiseOnSet returns an error wrapping a *Request if the cancellation
// has reached at least level, and nil otherwise.
func (c *Cancellation) RaiseOnSet(level Type) error {
	if c.IsSet(level) {
		return errors.WithStack(&Request{reason: c.Explain()})
	}
	return nil
}

// Explain returns the reason given to the most recent Notify call.
func (c *Cancellation) Explain() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// IsRequest reports whether err is (or wraps) a cancellation Request.
func IsRequest(err error) bool {
	var r *Request
	return errors.As(err, &r)
}
