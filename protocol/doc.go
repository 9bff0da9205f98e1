// Package protocol defines the wire envelope and the event-type vocabulary
// exchanged with the HelixDesk realtime backend.
//
// Every frame in either direction is a JSON Envelope. Event types are a
// closed vocabulary of lifecycle, heartbeat, error, and domain events;
// frames with unknown types are delivered to wildcard subscribers only.
package protocol
