// Package transport abstracts the underlying duplex connection behind
// small Dialer and Conn interfaces, so the connection manager, queue, and
// dispatcher are runtime-agnostic and testable without a real socket. The
// production implementation dials WebSockets via gorilla/websocket.
package transport
