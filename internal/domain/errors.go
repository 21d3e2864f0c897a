package domain

import "errors"

var (
	// ErrInvalidRequest: missing or empty question text. Surfaced as 400.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrTransport: network failure, non-2xx or malformed payload from the remote agent.
	ErrTransport = errors.New("agent transport error")

	// ErrTimeout: the remote agent exceeded the response ceiling.
	ErrTimeout = errors.New("agent timeout")

	// ErrConfiguration: the remote agent credential is absent or a placeholder.
	ErrConfiguration = errors.New("agent not configured")

	// ErrRateLimited: the outbound agent budget is exhausted.
	ErrRateLimited = errors.New("agent rate limited")

	ErrRoomNotFound = errors.New("room not found")

	// ErrBusy: a chat conversation already has a question in flight.
	ErrBusy = errors.New("conversation busy")

	// ErrEmpty: a chat conversation was asked to submit blank text.
	ErrEmpty = errors.New("empty message")
)
