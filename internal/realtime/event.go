package realtime

import (
	"encoding/json"
	"fmt"
)

// Event names pushed to clients.
const (
	EventConnected        = "connected"
	EventProductsUpdated  = "productsUpdated"
	EventMessageLogs      = "messageLogs"
	EventNewUserConnected = "newUserConnected"
)

// Event is one fan-out message. Target limits delivery to a single client;
// Exclude skips one client.
type Event struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Target  string          `json:"target,omitempty"`
	Exclude string          `json:"exclude,omitempty"`
}

// NewEvent encodes payload once so every subscriber shares the bytes.
func NewEvent(name string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", name, err)
	}
	return Event{Name: name, Payload: raw}, nil
}

// Decode unmarshals the payload into dst.
func (e Event) Decode(dst any) error {
	return json.Unmarshal(e.Payload, dst)
}

func (e Event) deliverableTo(clientID string) bool {
	if e.Target != "" && e.Target != clientID {
		return false
	}
	return e.Exclude == "" || e.Exclude != clientID
}
