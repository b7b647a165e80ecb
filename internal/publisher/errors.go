package publisher

import "errors"

// Domain errors for the delivery loop.
var (
	// ErrEncode wraps a failure to turn an event into a publishable item.
	// The event is not buffered.
	ErrEncode = errors.New("publisher: event rejected")

	// ErrClosed is returned once the publisher has stopped after a shutdown.
	ErrClosed = errors.New("publisher: closed")

	// ErrMissingDependency is returned by New when a required option is nil.
	ErrMissingDependency = errors.New("publisher: missing dependency")
)
