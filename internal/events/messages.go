package events

import (
	"encoding/json"
	"time"

	"grana/internal/core"
)

// Op names the mutation that happened to a ledger entry.
type Op string

const (
	OpCreate   Op = "create"
	OpUpdate   Op = "update"
	OpDelete   Op = "delete"
	OpRegister Op = "register"
)

// LedgerEvent is the message published after every successful mutation.
// It carries identifiers only; consumers fetch whatever detail they need.
type LedgerEvent struct {
	Kind    core.Kind `json:"kind"`
	Op      Op        `json:"op"`
	UserID  string    `json:"userId"`
	EntryID string    `json:"entryId"`
	At      time.Time `json:"at"`
}

// NewLedgerEvent creates an event stamped with the current time.
func NewLedgerEvent(kind core.Kind, op Op, userID, entryID string) *LedgerEvent {
	return &LedgerEvent{
		Kind:    kind,
		Op:      op,
		UserID:  userID,
		EntryID: entryID,
		At:      time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON creates an event from JSON bytes
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
