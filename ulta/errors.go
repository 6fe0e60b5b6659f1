package ulta

import "github.com/ulta-agent/ulta/errors"

// ErrJobStopped marks a job execution ended because the control plane
// sent a STOP signal, as opposed to finishing or failing on its own.
var ErrJobStopped = errors.New("job stopped")

// ErrJobNotExecuted marks a requested single job that could never be
// started, e.g. because the control plane doesn't know it.
var ErrJobNotExecuted = errors.New("job not executed")

// errInvalidJobData marks a job whose ammo or config this agent cannot
// safely use, e.g. a test-data name that would escape its data
// directory.
var errInvalidJobData = errors.New("invalid job data")

// notFoundError is implemented by transport errors that mean "no such
// resource", used here to tell an empty job queue apart from a failed
// request.
type notFoundError interface {
	error
	NotFound() bool
}

func isNotFound(err error) bool {
	var ne notFoundError
	return errors.As(err, &ne) && ne.NotFound()
}

// rejectedError is implemented by transport errors meaning the backend
// itself refused the request for this job (failed precondition or not
// found), as opposed to a transient failure.
type rejectedError interface {
	error
	Rejected() bool
}

func isRejected(err error) bool {
	var re rejectedError
	return errors.As(err, &re) && re.Rejected()
}

// transientError is implemented by transport errors the control loop
// should ride out rather than abandon the job over (internal server
// errors, unavailable, timeouts, rate limiting).
type transientError interface {
	error
	Transient() bool
}

func isTransient(err error) bool {
	var te transientError
	return errors.As(err, &te) && te.Transient()
}

// objectStorageError is implemented by transport errors from the
// object-store client.
type objectStorageError interface {
	error
	ObjectStorage() bool
}

func isObjectStorageError(err error) bool {
	var oe objectStorageError
	return errors.As(err, &oe) && oe.ObjectStorage()
}
