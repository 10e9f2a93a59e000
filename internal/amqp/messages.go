package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"expenses/internal/ledger"
)

// MessageVersion is bumped whenever EventMessage changes incompatibly.
const MessageVersion = 1

// EventMessage is the wire form of a ledger.Event.
type EventMessage struct {
	Version int          `json:"version"`
	Event   ledger.Event `json:"event"`
}

// NewEventMessage wraps ev, stamping it with the current time when unset.
func NewEventMessage(ev ledger.Event) *EventMessage {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	return &EventMessage{Version: MessageVersion, Event: ev}
}

// ToJSON converts the message to JSON bytes.
func (m *EventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EventMessageFromJSON decodes a message and rejects unknown versions or kinds.
func EventMessageFromJSON(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Version != MessageVersion {
		return nil, fmt.Errorf("unsupported message version %d", msg.Version)
	}
	switch msg.Event.Kind {
	case ledger.EventExpenseAdded, ledger.EventExpenseDeleted:
	default:
		return nil, fmt.Errorf("unknown event kind %q", msg.Event.Kind)
	}
	return &msg, nil
}
