package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidPayload = errors.New("event: invalid payload")

// Event is one validated domain event ready for routing. Raw is forwarded to
// clients verbatim; Payload is the typed view used for validation and scope.
type Event struct {
	Kind    Kind
	Payload Payload
	Raw     json.RawMessage
	Filter  Filter
}

// New builds an Event from a typed payload. The filter comes from the
// payload's scope fields.
func New(p Payload) (Event, error) {
	if p == nil {
		return Event{}, fmt.Errorf("%w: nil payload", ErrInvalidPayload)
	}
	if err := p.Validate(); err != nil {
		return Event{}, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, p.Kind(), err)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return Event{}, fmt.Errorf("event: marshal %s: %w", p.Kind(), err)
	}
	return Event{
		Kind:    p.Kind(),
		Payload: p,
		Raw:     raw,
		Filter:  p.EventScope().Filter(),
	}, nil
}

// Decode validates raw against the schema of kind. Unknown kinds and payloads
// that are not JSON objects are rejected. Fields outside the schema are kept
// in Raw.
func Decode(kind string, raw []byte) (Event, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return Event{}, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		trimmed = []byte("{}")
	}
	if trimmed[0] != '{' {
		return Event{}, fmt.Errorf("%w: %s: payload must be a JSON object", ErrInvalidPayload, k)
	}

	p := factories[k]()
	if err := json.Unmarshal(trimmed, p); err != nil {
		return Event{}, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, k, err)
	}
	if err := p.Validate(); err != nil {
		return Event{}, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, k, err)
	}

	return Event{
		Kind:    k,
		Payload: p,
		Raw:     json.RawMessage(trimmed),
		Filter:  p.EventScope().Filter(),
	}, nil
}

// Validate re-checks an Event assembled by hand.
func (e Event) Validate() error {
	if _, err := ParseKind(string(e.Kind)); err != nil {
		return err
	}
	if e.Payload == nil || e.Payload.Kind() != e.Kind {
		return fmt.Errorf("%w: %s: payload does not match kind", ErrInvalidPayload, e.Kind)
	}
	if err := e.Payload.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidPayload, e.Kind, err)
	}
	if len(e.Raw) == 0 {
		return fmt.Errorf("%w: %s: empty body", ErrInvalidPayload, e.Kind)
	}
	return nil
}

// Message is the producer-facing wire form accepted by the ingest surfaces.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DecodeMessage parses {"type": ..., "data": {...}}.
func DecodeMessage(b []byte) (Event, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return Decode(m.Type, m.Data)
}

// Envelope is what clients receive.
type Envelope struct {
	Type      Kind            `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Encode renders the client envelope.
func Encode(kind Kind, data json.RawMessage, at time.Time) ([]byte, error) {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	return json.Marshal(Envelope{
		Type:      kind,
		Data:      data,
		Timestamp: at.UTC(),
	})
}

// EncodeValue marshals v and renders it in an envelope; used for
// gateway-generated messages.
func EncodeValue(kind Kind, v any, at time.Time) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Encode(kind, data, at)
}
