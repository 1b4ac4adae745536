package domain

import "errors"

var (
	// ErrInvalidTransition marks a stale, duplicate or out-of-order event.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrUnauthorizedActor marks an interaction by someone other than the
	// original requester.
	ErrUnauthorizedActor = errors.New("unauthorized actor")

	// ErrCollaboratorFailure wraps model, asset and storage failures seen
	// while handling an event.
	ErrCollaboratorFailure = errors.New("collaborator failure")

	// ErrConfiguration is fatal at startup.
	ErrConfiguration = errors.New("configuration error")

	ErrModelUnavailable   = errors.New("model unavailable")
	ErrModelRequestFailed = errors.New("model request failed")

	// ErrContention is returned when a compare-and-swap loop gives up.
	ErrContention = errors.New("session contention")
)
