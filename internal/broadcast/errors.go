package broadcast

import "errors"

var (
	// ErrResourceExhausted is returned by Subscribe when the subscriber cap is reached.
	ErrResourceExhausted = errors.New("broadcast: subscriber capacity exhausted")

	// ErrClosed is returned by Subscribe after the Broadcaster has been closed.
	ErrClosed = errors.New("broadcast: broadcaster closed")
)
