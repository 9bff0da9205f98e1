// Package backoff implements the reconnection schedule: an exponential
// delay policy bounded by a maximum, and a controller that owns the single
// pending reconnect timer.
package backoff
