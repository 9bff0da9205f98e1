// Package heartbeat implements the ping/pong liveness monitor. While the
// connection is live it sends a ping envelope on a fixed cadence, arms a
// pong timeout per ping, and reports round-trip latency. A missed pong is
// reported as a dead connection.
package heartbeat
