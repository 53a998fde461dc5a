package kvgate

import "errors"

// Sentinel errors returned by Store operations. Adapters map these onto
// protocol status codes; match with errors.Is or KindOf.
var (
	// ErrUnauthorized covers missing, unknown and revoked tokens alike.
	// The store never distinguishes the cases, so callers cannot probe
	// which tokens exist.
	ErrUnauthorized = errors.New("kvgate: unauthorized")

	// ErrNotFound means the key is absent from the token's namespace.
	ErrNotFound = errors.New("kvgate: key not found")

	// ErrInvalidArgument means a malformed request parameter
	// (empty key, negative TTL).
	ErrInvalidArgument = errors.New("kvgate: invalid argument")

	// ErrBackendUnavailable means the engine could not be reached or
	// failed the operation. Retryable by the caller.
	ErrBackendUnavailable = errors.New("kvgate: backend unavailable")

	// ErrInternal signals an encoding invariant violation. A bug, not a
	// normal outcome.
	ErrInternal = errors.New("kvgate: internal error")
)

// Kind classifies a Store error for status-code mapping.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthorized
	KindNotFound
	KindInvalidArgument
	KindBackendUnavailable
	KindInternal
)

// KindOf returns the Kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrBackendUnavailable):
		return KindBackendUnavailable
	case errors.Is(err, ErrInternal):
		return KindInternal
	default:
		return KindUnknown
	}
}
