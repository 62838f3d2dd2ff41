package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"saldo/internal/core"
)

// TransactionAppendedMessage announces a transaction that was saved to the
// ledger store.
type TransactionAppendedMessage struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"`
	Kind      string    `json:"kind"`
	Category  string    `json:"category"`
	Amount    string    `json:"amount"`
	Note      string    `json:"note,omitempty"`
	Year      int       `json:"year"`
	Month     string    `json:"month"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionAppendedMessage(tx core.Transaction) *TransactionAppendedMessage {
	return &TransactionAppendedMessage{
		ID:        uuid.NewString(),
		Date:      tx.Date.String(),
		Kind:      tx.Kind.String(),
		Category:  tx.Category,
		Amount:    core.FormatAmount(tx.Amount),
		Note:      tx.Note,
		Year:      tx.Year,
		Month:     tx.MonthName(),
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionAppendedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionAppendedMessageFromJSON(data []byte) (*TransactionAppendedMessage, error) {
	var msg TransactionAppendedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Transaction rebuilds the announced transaction.
func (m *TransactionAppendedMessage) Transaction() (core.Transaction, error) {
	date, err := core.ParseDate(m.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("message %s: %w", m.ID, err)
	}
	kind, err := core.ParseKind(m.Kind)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("message %s: %w", m.ID, err)
	}
	amount, err := core.ParseAmount(m.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("message %s: %w", m.ID, err)
	}
	return core.NewTransaction(date, kind, m.Category, amount, m.Note), nil
}
