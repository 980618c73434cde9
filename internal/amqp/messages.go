package amqp

import (
	"encoding/json"
	"time"
)

// Mutation actions carried in event messages.
const (
	ActionCreated  = "transaction.created"
	ActionUpdated  = "transaction.updated"
	ActionDeleted  = "transaction.deleted"
	ActionImported = "transaction.imported"
	ActionCleared  = "transaction.cleared"
)

// MutationMessage is the lightweight event published after a ledger
// mutation. Consumers fetch whatever details they need themselves;
// the message only says whose ledger changed and how.
type MutationMessage struct {
	Action        string    `json:"action"`
	UserID        string    `json:"user_id"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Count         int64     `json:"count,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewMutationMessage(action, userID, transactionID string, count int64) *MutationMessage {
	return &MutationMessage{
		Action:        action,
		UserID:        userID,
		TransactionID: transactionID,
		Count:         count,
		Timestamp:     time.Now(),
	}
}

func (m *MutationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MutationMessageFromJSON(data []byte) (*MutationMessage, error) {
	var msg MutationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
