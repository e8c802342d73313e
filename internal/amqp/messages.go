package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types, carried in the AMQP "type" property.
const (
	EventTransactionRecorded = "transaction.recorded"
	EventLedgerCleared       = "ledger.cleared"
	EventBudgetAlert         = "budget.alert"
)

// Message is anything the client can publish.
type Message interface {
	EventType() string
	MessageID() string
}

// TransactionRecordedMessage mirrors a stored ledger entry.
type TransactionRecordedMessage struct {
	ID            string          `json:"id"`
	UserID        int64           `json:"user_id"`
	Username      string          `json:"username,omitempty"`
	TransactionID int64           `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	Description   string          `json:"description,omitempty"`
	Kind          string          `json:"kind"`
	Timestamp     time.Time       `json:"timestamp"`
	PublishedAt   time.Time       `json:"published_at"`
}

// BudgetAlertMessage is emitted when a spend leaves a category near or over its limit.
type BudgetAlertMessage struct {
	ID           string          `json:"id"`
	UserID       int64           `json:"user_id"`
	Username     string          `json:"username,omitempty"`
	Category     string          `json:"category"`
	Status       string          `json:"status"`
	Limit        decimal.Decimal `json:"limit"`
	Spend        decimal.Decimal `json:"spend"`
	RunningTotal decimal.Decimal `json:"running_total"`
	Overage      decimal.Decimal `json:"overage"`
	PublishedAt  time.Time       `json:"published_at"`
}

type LedgerClearedMessage struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"user_id"`
	Removed     int64     `json:"removed"`
	PublishedAt time.Time `json:"published_at"`
}

func newID() string { return uuid.NewString() }

func NewTransactionRecordedMessage(userID, transactionID int64, amount decimal.Decimal, category, description, kind string, ts time.Time) *TransactionRecordedMessage {
	return &TransactionRecordedMessage{
		ID:            newID(),
		UserID:        userID,
		TransactionID: transactionID,
		Amount:        amount,
		Category:      category,
		Description:   description,
		Kind:          kind,
		Timestamp:     ts,
		PublishedAt:   time.Now().UTC(),
	}
}

func NewBudgetAlertMessage(userID int64, category, status string, limit, spend, runningTotal, overage decimal.Decimal) *BudgetAlertMessage {
	return &BudgetAlertMessage{
		ID:           newID(),
		UserID:       userID,
		Category:     category,
		Status:       status,
		Limit:        limit,
		Spend:        spend,
		RunningTotal: runningTotal,
		Overage:      overage,
		PublishedAt:  time.Now().UTC(),
	}
}

func NewLedgerClearedMessage(userID, removed int64) *LedgerClearedMessage {
	return &LedgerClearedMessage{ID: newID(), UserID: userID, Removed: removed, PublishedAt: time.Now().UTC()}
}

func (m *TransactionRecordedMessage) EventType() string { return EventTransactionRecorded }
func (m *TransactionRecordedMessage) MessageID() string { return m.ID }
func (m *BudgetAlertMessage) EventType() string { return EventBudgetAlert }
func (m *BudgetAlertMessage) MessageID() string { return m.ID }
func (m *LedgerClearedMessage) EventType() string { return EventLedgerCleared }
func (m *LedgerClearedMessage) MessageID() string { return m.ID }

// Decode unmarshals body into T. Failures wrap ErrMalformed so the consumer
// drops the delivery instead of requeueing it forever.
func Decode[T any](body []byte) (*T, error) {
	var msg T
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &msg, nil
}
