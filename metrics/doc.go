// Package metrics provides Prometheus metrics for monitoring the realtime
// client.
//
// Key metrics:
//   - Connection state and reconnect attempts
//   - Frames sent, received, and dropped
//   - Outgoing queue depth and evictions
//   - Heartbeat round-trip latency
package metrics
