package realtime

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/helixdesk/realtime-go/protocol"
)

// ErrRequestDropped reports that a request could not be transmitted or
// queued, so no reply will ever arrive.
var ErrRequestDropped = errors.New("request not sent")

// Request sends an envelope carrying a request id and blocks until a reply
// correlated to it arrives or the context is cancelled. The server
// correlates by echoing the request id as correlationId.
func (c *Client) Request(ctx context.Context, eventType string, data any, opts ...SendOption) (protocol.Envelope, error) {
	var o sendOptions
	for _, opt := range opts {
		opt(&o)
	}
	o.requestID = uuid.NewString()

	reply := make(chan protocol.Envelope, 1)
	c.pendingMu.Lock()
	c.pending[o.requestID] = reply
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, o.requestID)
		c.pendingMu.Unlock()
	}()

	if !c.send(eventType, data, o) {
		return protocol.Envelope{}, ErrRequestDropped
	}

	select {
	case env := <-reply:
		return env, nil
	case <-ctx.Done():
		return protocol.Envelope{}, ctx.Err()
	}
}

func (c *Client) resolvePending(env protocol.Envelope) {
	c.pendingMu.Lock()
	reply, ok := c.pending[env.CorrelationID]
	if ok {
		delete(c.pending, env.CorrelationID)
	}
	c.pendingMu.Unlock()

	if ok {
		reply <- env
	}
}
