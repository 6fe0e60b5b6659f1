package grpc

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// transientCodes mirrors the set of gRPC status codes worth retrying:
// ones that plausibly reflect a passing backend hiccup rather than a
// request the backend will never accept.
var transientCodes = map[codes.Code]bool{
	codes.Unknown:            true,
	codes.PermissionDenied:   true,
	codes.Unavailable:        true,
	codes.Unauthenticated:    true,
	codes.Aborted:            true,
}

// rpcError wraps a failed call with its gRPC status so every consumer
// package's marker interface (NotFound, Rejected, Transient,
// ObjectStorage, AgentUnrecognized, Retryable) can classify it without
// this package importing any of those packages.
type rpcError struct {
	method string
	code   codes.Code
	err    error
}

func wrapRPCError(method string, err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	return &rpcError{method: method, code: st.Code(), err: err}
}

func (e *rpcError) Error() string {
	return e.method + ": " + e.err.Error()
}

func (e *rpcError) Unwrap() error { return e.err }

func (e *rpcError) NotFound() bool { return e.code == codes.NotFound }

func (e *rpcError) Rejected() bool {
	return e.code == codes.NotFound || e.code == codes.FailedPrecondition || e.code == codes.InvalidArgument
}

func (e *rpcError) Transient() bool { return transientCodes[e.code] }

func (e *rpcError) Retryable() bool { return transientCodes[e.code] }

func (e *rpcError) ObjectStorage() bool { return false }

func (e *rpcError) AgentUnrecognized() bool {
	return e.code == codes.NotFound || e.code == codes.PermissionDenied
}

func isTransientCode(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	return transientCodes[st.Code()]
}
