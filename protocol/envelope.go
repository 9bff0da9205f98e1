package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Errors
var (
	ErrNotConnected  = errors.New("not connected")
	ErrPongTimeout   = errors.New("pong timeout (connection dead)")
	ErrQueueDisabled = errors.New("message queue disabled")
	ErrClosed        = errors.New("client closed")
)

// Envelope wraps every message exchanged over the connection, both
// directions. Immutable once constructed.
type Envelope struct {
	Type          string          `json:"type"`
	Data          json.RawMessage `json:"data,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	MessageID     string          `json:"messageId"`
	CorrelationID string          `json:"correlationId,omitempty"`

	// RequestID is set on outgoing frames that expect a response. A
	// response frame carries the same value in CorrelationID.
	RequestID string `json:"requestId,omitempty"`
}

// NewEnvelope builds an envelope with a fresh message ID and the current
// time. data may be nil.
func NewEnvelope(eventType string, data any) (Envelope, error) {
	env := Envelope{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		MessageID: uuid.NewString(),
	}

	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Envelope{}, fmt.Errorf("marshal envelope data: %w", err)
		}
		env.Data = raw
	}

	return env, nil
}

// Parse decodes a raw frame into an envelope.
func Parse(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("parse envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, errors.New("parse envelope: missing type")
	}
	return env, nil
}

// Encode serializes the envelope for transmission.
func (e Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

// DecodeData unmarshals the payload into v.
func (e Envelope) DecodeData(v any) error {
	if len(e.Data) == 0 {
		return errors.New("envelope has no data")
	}
	return json.Unmarshal(e.Data, v)
}
