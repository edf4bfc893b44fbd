package core

import "errors"

var (
	// ErrUnknownKind is returned when a registration or construction names a
	// kind outside the closed set.
	ErrUnknownKind = errors.New("unknown update kind")

	// ErrPayloadMismatch is returned when an Update is built with a payload
	// whose type does not belong to the stated kind.
	ErrPayloadMismatch = errors.New("payload does not match update kind")

	// ErrHandlerNotFound is returned when unregistering a handler that is not
	// present in the registry.
	ErrHandlerNotFound = errors.New("handler not registered")

	// ErrAlreadyStarted is returned when registration, unregistration or
	// middleware mutation is attempted after Start.
	ErrAlreadyStarted = errors.New("bot already started")

	// ErrNotRunning is returned when updates are pushed to a bot that is not
	// in the running state.
	ErrNotRunning = errors.New("bot is not running")
)
