package realtime

import "errors"

// ErrChannelClosed is returned by Send after a channel has shut down. The
// broadcaster treats it the same as "not connected".
var ErrChannelClosed = errors.New("channel closed")

// Channel is one actor's live delivery path. Implementations must be safe
// for concurrent Send calls and must preserve the order in which Send is
// invoked for a given channel.
type Channel interface {
	// Send queues a named event for delivery. Best effort: a send to a
	// closing channel returns ErrChannelClosed.
	Send(event string, payload any) error

	// Close tears the channel down. Idempotent.
	Close() error
}
