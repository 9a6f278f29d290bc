// Package storage defines the ledger query port: the narrow set of reads and
// writes the budget gate, the budget ledgers and the recurrence scheduler
// need from persistence. Implementations live in subpackages.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Manudeeprao/expense-tracker/internal/models"
	"github.com/Manudeeprao/expense-tracker/internal/pagination"
)

// ErrNotFound is returned by Find* methods when no matching record exists.
var ErrNotFound = errors.New("storage: record not found")

// UserFinder answers user existence checks.
type UserFinder interface {
	FindUser(ctx context.Context, userID string) (*models.User, error)
}

// BudgetStore persists the per-user global budget.
type BudgetStore interface {
	FindBudgetByUser(ctx context.Context, userID string) (*models.Budget, error)
	SaveBudget(ctx context.Context, budget *models.Budget) error
}

// CategoryBudgetStore persists per-category limits.
type CategoryBudgetStore interface {
	FindCategoryBudget(ctx context.Context, userID, categoryID string) (*models.CategoryBudget, error)
	FindCategoryBudgetByID(ctx context.Context, id string) (*models.CategoryBudget, error)
	SaveCategoryBudget(ctx context.Context, budget *models.CategoryBudget) error
	DeleteCategoryBudget(ctx context.Context, id string) error
	ListCategoryBudgetsByUser(ctx context.Context, userID string) ([]models.CategoryBudget, error)
}

// ExpenseFilter narrows an expense listing. Nil or empty fields match
// everything; date bounds are inclusive calendar days and Name is a
// case-insensitive substring.
type ExpenseFilter struct {
	CategoryID *string
	FromDate   *time.Time
	ToDate     *time.Time
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
	Name       string
}

// CategoryTotal is one user's spend in one category over a period.
// CategoryID is nil for uncategorized expenses.
type CategoryTotal struct {
	CategoryID   *string
	CategoryName string
	Total        decimal.Decimal
}

// ExpenseStore answers spend totals and persists expenses.
//
// excludeID, when non-empty, leaves that expense out of a sum so an update
// is not counted against itself.
type ExpenseStore interface {
	SumExpensesForUser(ctx context.Context, userID, excludeID string) (decimal.Decimal, error)
	SumExpensesForUserInPeriod(ctx context.Context, userID string, month, year int) (decimal.Decimal, error)
	SumExpensesForUserAndCategory(ctx context.Context, userID, categoryID, excludeID string) (decimal.Decimal, error)
	SumExpensesByCategoryInPeriod(ctx context.Context, userID string, month, year int) ([]CategoryTotal, error)
	// ListExpenses returns one page of matching expenses, newest first,
	// together with the total number of matches.
	ListExpenses(ctx context.Context, userID string, filter ExpenseFilter, page pagination.PageRequest) ([]models.Expense, int64, error)
	FindExpense(ctx context.Context, id string) (*models.Expense, error)
	ExistsExpense(ctx context.Context, userID, name string, date time.Time) (bool, error)
	SaveExpense(ctx context.Context, expense *models.Expense) error
	DeleteExpense(ctx context.Context, id string) error
}

// TemplateStore persists recurrence templates.
type TemplateStore interface {
	ListActiveTemplates(ctx context.Context) ([]models.RecurrenceTemplate, error)
	FindTemplateBySource(ctx context.Context, sourceExpenseID string) (*models.RecurrenceTemplate, error)
	SaveTemplate(ctx context.Context, template *models.RecurrenceTemplate) error
	DeleteTemplateBySource(ctx context.Context, sourceExpenseID string) error
}

// Ledger is the full port implemented by every backend.
type Ledger interface {
	UserFinder
	BudgetStore
	CategoryBudgetStore
	ExpenseStore
	TemplateStore
}
