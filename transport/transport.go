package transport

import (
	"context"
	"errors"
	"time"
)

// Errors
var (
	ErrConnClosed = errors.New("transport connection closed")
)

// Frame is a raw inbound frame with its local receive timestamp.
type Frame struct {
	Data       []byte
	ReceivedAt time.Time
}

// Conn is a single live duplex connection. A Conn is good for one
// connection episode; reconnection dials a fresh one.
type Conn interface {
	// Send writes one frame. Safe for concurrent use.
	Send(data []byte) error

	// Frames returns the inbound frame channel. It is closed when the
	// connection dies or Close is called.
	Frames() <-chan Frame

	// Errors returns a channel reporting the terminal connection error,
	// if any. Errors after Close are suppressed.
	Errors() <-chan error

	// Close tears the connection down. Idempotent.
	Close() error
}

// Dialer opens connections. token is passed as a bearer credential; an
// empty token dials unauthenticated.
type Dialer interface {
	Dial(ctx context.Context, url, token string) (Conn, error)
}
