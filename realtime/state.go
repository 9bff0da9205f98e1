package realtime

import "time"

// Status is the connection state. Exactly one is active at a time.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting

	// StatusError is the stable terminal state after the reconnect
	// budget is exhausted; an explicit Connect call exits it.
	StatusError
)

// String returns the state name.
func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// statusNames lists every state, for the metrics gauge.
var statusNames = []string{
	StatusDisconnected.String(),
	StatusConnecting.String(),
	StatusConnected.String(),
	StatusReconnecting.String(),
	StatusError.String(),
}

// State is a read-only snapshot of the connection, owned by the Client.
type State struct {
	Status Status

	// LastError is the most recent transport or liveness error. It is
	// kept across the Reconnecting state and cleared on a successful
	// connect.
	LastError error

	// ReconnectAttempts counts attempts within the current reconnection
	// episode. It resets to 0 only on a successful connect.
	ReconnectAttempts int

	LastConnectedAt    time.Time
	LastDisconnectedAt time.Time

	// Latency is the most recent heartbeat round trip. The stale value
	// is retained, not cleared, between pings; HasLatency is false until
	// the first completed round trip.
	Latency    time.Duration
	HasLatency bool
}

// IsConnected reports Status == StatusConnected.
func (s State) IsConnected() bool { return s.Status == StatusConnected }

// IsConnecting reports Status == StatusConnecting.
func (s State) IsConnecting() bool { return s.Status == StatusConnecting }

// IsReconnecting reports Status == StatusReconnecting.
func (s State) IsReconnecting() bool { return s.Status == StatusReconnecting }
