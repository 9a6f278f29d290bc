// Package events publishes domain notifications raised by the recurrence job.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Manudeeprao/expense-tracker/internal/models"
)

// RoutingKeyExpenseGenerated is used for ExpenseGenerated messages.
const RoutingKeyExpenseGenerated = "expense.generated"

// ExpenseGenerated is emitted after the scheduler persists a new instance.
type ExpenseGenerated struct {
	ExpenseID  string          `json:"expense_id"`
	TemplateID string          `json:"template_id"`
	UserID     string          `json:"user_id"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Date       string          `json:"date"`
	Timestamp  time.Time       `json:"timestamp"`
}

// NewExpenseGenerated builds the message for a generated instance.
func NewExpenseGenerated(e *models.Expense, at time.Time) *ExpenseGenerated {
	msg := &ExpenseGenerated{
		ExpenseID: e.ID,
		UserID:    e.UserID,
		Name:      e.Name,
		Amount:    e.Amount,
		Date:      e.Date.Format("2006-01-02"),
		Timestamp: at,
	}
	if e.TemplateID != nil {
		msg.TemplateID = *e.TemplateID
	}
	return msg
}

// ToJSON encodes the message body.
func (m *ExpenseGenerated) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseGeneratedFromJSON decodes a message body.
func ExpenseGeneratedFromJSON(data []byte) (*ExpenseGenerated, error) {
	var msg ExpenseGenerated
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Publisher delivers domain events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	PublishExpenseGenerated(ctx context.Context, msg *ExpenseGenerated) error
	Close() error
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) PublishExpenseGenerated(context.Context, *ExpenseGenerated) error { return nil }

func (Nop) Close() error { return nil }
