package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Manudeeprao/expense-tracker/internal/uuid"
)

// Budget is the single global spending limit of a user.
type Budget struct {
	Base
	UserID      string          `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	TotalBudget decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_budget"`
}

// CategoryBudget is an optional secondary limit scoped to one category.
// At most one row exists per (UserID, CategoryID).
type CategoryBudget struct {
	ID         string          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     string          `gorm:"type:uuid;not null;uniqueIndex:idx_category_budgets_user_category" json:"user_id"`
	CategoryID string          `gorm:"type:uuid;not null;uniqueIndex:idx_category_budgets_user_category" json:"category_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
}

// BeforeCreate hook generates a UUIDv7 for new category budgets
func (b *CategoryBudget) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New()
	}
	return nil
}
