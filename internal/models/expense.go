package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecurrencePolicy describes how often a recurring expense repeats.
type RecurrencePolicy string

const (
	RecurrenceNone    RecurrencePolicy = "NONE"
	RecurrenceDaily   RecurrencePolicy = "DAILY"
	RecurrenceWeekly  RecurrencePolicy = "WEEKLY"
	RecurrenceMonthly RecurrencePolicy = "MONTHLY"
)

// Valid reports whether p is one of the known policies.
func (p RecurrencePolicy) Valid() bool {
	switch p {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

// Expense is money spent by a user, optionally within a category.
type Expense struct {
	Base
	UserID      string           `gorm:"type:uuid;not null;index:idx_expenses_user_date" json:"user_id"`
	CategoryID  *string          `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Name        string           `gorm:"not null" json:"name"`
	Description string           `json:"description"`
	Amount      decimal.Decimal  `gorm:"type:decimal(15,2);not null" json:"amount"`
	Date        time.Time        `gorm:"not null;index:idx_expenses_user_date" json:"date"`
	Recurring   bool             `gorm:"not null" json:"recurring"`
	Recurrence  RecurrencePolicy `gorm:"type:varchar(16);not null" json:"recurrence"`

	// TemplateID is set on expenses generated by the recurrence scheduler.
	TemplateID *string `gorm:"type:uuid;index" json:"template_id,omitempty"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// RecurrenceTemplate generates Expense instances on a schedule. AnchorDate
// is the date of the most recently emitted instance (or of the source
// expense before the first emission).
type RecurrenceTemplate struct {
	Base
	UserID          string           `gorm:"type:uuid;not null;index" json:"user_id"`
	SourceExpenseID string           `gorm:"type:uuid;not null;uniqueIndex" json:"source_expense_id"`
	Policy          RecurrencePolicy `gorm:"type:varchar(16);not null" json:"policy"`
	AnchorDate      time.Time        `gorm:"not null" json:"anchor_date"`
	Active          bool             `gorm:"not null;index" json:"active"`

	CategoryID  *string         `gorm:"type:uuid" json:"category_id,omitempty"`
	Name        string          `gorm:"not null" json:"name"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
}

// Instance builds the expense this template emits on the given date.
func (t *RecurrenceTemplate) Instance(date time.Time) *Expense {
	templateID := t.ID
	return &Expense{
		UserID:      t.UserID,
		CategoryID:  t.CategoryID,
		Name:        t.Name,
		Description: t.Description,
		Amount:      t.Amount,
		Date:        DateOf(date),
		Recurring:   true,
		Recurrence:  t.Policy,
		TemplateID:  &templateID,
	}
}
