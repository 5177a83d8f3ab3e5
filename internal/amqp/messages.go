package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"smartspend/internal/store"
)

// ChangeMessage tells the worker that an owner's data changed.
// It carries no record data; consumers reload what they need.
type ChangeMessage struct {
	Entity    string    `json:"entity"`
	Op        string    `json:"op"`
	ID        string    `json:"id,omitempty"`
	Owner     string    `json:"owner"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChangeMessage builds the wire message for a committed mutation.
func NewChangeMessage(ev store.ChangeEvent) *ChangeMessage {
	ts := ev.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &ChangeMessage{
		Entity:    string(ev.Entity),
		Op:        string(ev.Op),
		ID:        ev.ID,
		Owner:     ev.Owner,
		Timestamp: ts.UTC(),
	}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes a message and rejects ones without owner or entity.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Owner == "" {
		return nil, errors.New("change message without owner")
	}
	if msg.Entity == "" {
		return nil, errors.New("change message without entity")
	}
	return &msg, nil
}
