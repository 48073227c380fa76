package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Action tells the worker what to do with the spreadsheet row.
type Action string

const (
	ActionUpsert Action = "upsert"
	ActionDelete Action = "delete"
)

// TransactionSyncMessage is a lightweight notification: it carries only the
// ID and version, the worker loads the full transaction from the database.
type TransactionSyncMessage struct {
	ID          string    `json:"id"`
	HouseholdID string    `json:"household_id"`
	Version     int64     `json:"version"`
	Action      Action    `json:"action"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewTransactionSyncMessage announces a newly stored transaction.
func NewTransactionSyncMessage(id, householdID string, version int64) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		ID:          id,
		HouseholdID: householdID,
		Version:     version,
		Action:      ActionUpsert,
		Timestamp:   time.Now(),
	}
}

// NewTransactionDeleteMessage announces a deleted transaction.
func NewTransactionDeleteMessage(id, householdID string, version int64) *TransactionSyncMessage {
	msg := NewTransactionSyncMessage(id, householdID, version)
	msg.Action = ActionDelete
	return msg
}

// ToJSON converts the message to JSON bytes
func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionSyncMessageFromJSON decodes and validates a message body.
func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("message without transaction id")
	}
	switch msg.Action {
	case ActionUpsert, ActionDelete:
	case "":
		msg.Action = ActionUpsert
	default:
		return nil, fmt.Errorf("unknown action %q", msg.Action)
	}
	return &msg, nil
}
