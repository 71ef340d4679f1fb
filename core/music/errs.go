package music

import "errors"

// Failure taxonomy for the music core. Handlers map these to HTTP statuses;
// everything else bubbles up as an internal error. All failures are
// per-request values, never panics.
var (
	// ErrUnauthorized means no authenticated actor was supplied.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden means the actor is authenticated but may not control the
	// session (or is not present in the voice channel).
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound means the session, queue item or channel does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument means a control value failed validation before any
	// state was mutated.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidAction means the action name is not recognized.
	ErrInvalidAction = errors.New("invalid action")

	// ErrUnsupportedSource means no URL pattern matched the given link.
	ErrUnsupportedSource = errors.New("unsupported source")

	// ErrResolutionFailed means the upstream platform lookup errored or its
	// credentials are absent.
	ErrResolutionFailed = errors.New("resolution failed")
)
