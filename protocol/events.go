package protocol

// Wildcard matches every event type when used as a subscription key.
const Wildcard = "*"

// Connection lifecycle events, emitted locally by the client at state
// transitions. connection:established is also sent by the server on accept.
const (
	EventConnectionEstablished = "connection:established"
	EventConnectionLost        = "connection:lost"
	EventConnectionReconnect   = "connection:reconnecting"
	EventConnectionReconnected = "connection:reconnected"
	EventConnectionError       = "connection:error"
)

// Heartbeat and protocol-level events.
const (
	EventPing  = "ping"
	EventPong  = "pong"
	EventError = "error"
)

// Domain events published by the backend.
const (
	EventInboxNew         = "inbox:new"
	EventInboxUpdated     = "inbox:updated"
	EventInboxDeleted     = "inbox:deleted"
	EventInboxBulkRead    = "inbox:bulk_read"
	EventInboxBulkArchive = "inbox:bulk_archive"

	EventMessageNew      = "message:new"
	EventMessageUpdated  = "message:updated"
	EventMessageDeleted  = "message:deleted"
	EventMessageReaction = "message:reaction"

	EventTypingStart = "typing:start"
	EventTypingStop  = "typing:stop"

	EventReadReceipt = "read:receipt"

	EventNotificationNew     = "notification:new"
	EventNotificationUpdated = "notification:updated"

	EventActivityNew = "activity:new"

	EventUserOnline  = "user:online"
	EventUserOffline = "user:offline"

	EventLabelCreated = "label:created"
	EventLabelUpdated = "label:updated"
	EventLabelDeleted = "label:deleted"
)

var knownEvents = map[string]struct{}{
	EventConnectionEstablished: {},
	EventConnectionLost:        {},
	EventConnectionReconnect:   {},
	EventConnectionReconnected: {},
	EventConnectionError:       {},
	EventPing:                  {},
	EventPong:                  {},
	EventError:                 {},
	EventInboxNew:              {},
	EventInboxUpdated:          {},
	EventInboxDeleted:          {},
	EventInboxBulkRead:         {},
	EventInboxBulkArchive:      {},
	EventMessageNew:            {},
	EventMessageUpdated:        {},
	EventMessageDeleted:        {},
	EventMessageReaction:       {},
	EventTypingStart:           {},
	EventTypingStop:            {},
	EventReadReceipt:           {},
	EventNotificationNew:       {},
	EventNotificationUpdated:   {},
	EventActivityNew:           {},
	EventUserOnline:            {},
	EventUserOffline:           {},
	EventLabelCreated:          {},
	EventLabelUpdated:          {},
	EventLabelDeleted:          {},
}

// KnownEvent reports whether eventType belongs to the protocol vocabulary.
// Unknown types are still delivered to wildcard subscribers.
func KnownEvent(eventType string) bool {
	_, ok := knownEvents[eventType]
	return ok
}
