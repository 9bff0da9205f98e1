// Package realtime implements the connection manager: the single public
// surface of the client. It owns the transport socket and the connection
// state machine, wires the heartbeat monitor, reconnection controller, and
// outgoing queue together, and delivers inbound envelopes to subscribers.
//
// A host application constructs one Client per logical connection and
// holds it in its composition root; there is no package-level singleton.
package realtime
