package state

import (
	"fmt"

	"github.com/ulta-agent/ulta/cancel"
	"go.uber.org/zap"
)

// Observer bundles a State, a logger, and a Cancellation so every
// background component can report and react to errors the same way.
type Observer struct {
	state        *State
	logger       *zap.SugaredLogger
	cancellation *cancel.Cancellation
}

// NewObserver builds an Observer over the given collaborators.
func NewObserver(s *State, logger *zap.SugaredLogger, c *cancel.Cancellation) *Observer {
	return &Observer{state: s, logger: logger, cancellation: c}
}

// ObserveOptions configures how Observe classifies an error raised
// inside its scope.
type ObserveOptions struct {
	// Suppress lists error types that should be swallowed instead of
	// propagated once logged.
	Suppress []func(error) bool
	// Error lists error types that should additionally be recorded in
	// State for this stage.
	Error []func(error) bool
	// Critical lists error types that should additionally trigger a
	// graceful cancellation request.
	Critical []func(error) bool
}

func matchesAny(err error, matchers []func(error) bool) bool {
	for _, m := range matchers {
		if m(err) {
			return true
		}
	}
	return false
}

// Observe runs fn inside stage, clearing any prior errors recorded for
// it, then classifying whatever fn returns:
//
//   - a cancellation Request is always logged and returned unchanged;
//   - an error matching Critical notifies the Cancellation and, unless
//     it also matches Suppress, is returned;
//   - an error matching Error is recorded against State for this stage;
//   - an error matching Suppress (and not Critical) is logged and
//     swallowed;
//   - anything else is logged and returned.
//
// This is the Go equivalent of a Python context manager: Python's
// `with observer.observe(...):` lowers to `defer`-wrapped calls around
// the body passed as fn.
func (o *Observer) Observe(stage string, opts ObserveOptions, fn func() error) error {
	o.state.Cleanup(stage)
	if err := o.cancellation.RaiseOnSet(cancel.Forced); err != nil {
		return err
	}

	exitStage := o.state.EnterState(stage)
	err := fn()
	exitStage()

	if err == nil {
		return nil
	}

	if cancel.IsRequest(err) {
		o.logger.Warnf("Terminating stage %q due to cancellation request.", stage)
		return err
	}

	msg := fmt.Sprintf("The error occured at %q: %s", stage, err.Error())

	isCritical := matchesAny(err, opts.Critical)
	isSuppressed := matchesAny(err, opts.Suppress)

	if matchesAny(err, opts.Error) {
		o.state.Error(stage, fmt.Errorf("%s", msg))
	}

	if isCritical {
		o.cancellation.NotifyGraceful(msg)
		o.logger.Errorf("The critical error occured: %s. Notifying service termination...", msg)
		if isSuppressed {
			return nil
		}
	}

	if isSuppressed {
		o.logger.Infof("Noncritical error occured at %q: %s.", stage, err.Error())
		return nil
	}

	o.logger.Error(msg)
	return err
}
