package amqp

import (
	"encoding/json"
	"time"
)

// Actions carried by expense event messages.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ExpenseEventMessage is the lightweight event published after a CRUD
// mutation. It carries identifiers only; the worker owns any further
// lookups.
type ExpenseEventMessage struct {
	ExpenseID int64     `json:"expense_id"`
	UserID    int64     `json:"user_id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseEventMessage(expenseID, userID int64, action string) *ExpenseEventMessage {
	return &ExpenseEventMessage{
		ExpenseID: expenseID,
		UserID:    userID,
		Action:    action,
		Timestamp: time.Now(),
	}
}

func (m *ExpenseEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseEventMessageFromJSON(data []byte) (*ExpenseEventMessage, error) {
	var msg ExpenseEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
