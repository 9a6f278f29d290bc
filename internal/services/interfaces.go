package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Manudeeprao/expense-tracker/internal/models"
	"github.com/Manudeeprao/expense-tracker/internal/pagination"
	"github.com/Manudeeprao/expense-tracker/internal/storage"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(ctx context.Context, email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(ctx context.Context, email, password string) (*models.User, error)
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(ctx context.Context, userID, name, description, color string) (*models.Category, error)
	GetUserCategories(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(ctx context.Context, userID, categoryID string) (*models.Category, error)
	DeleteCategory(ctx context.Context, userID, categoryID string) error
}

// BudgetStatus is a snapshot of a user's budget against one month of spend.
type BudgetStatus struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	TotalBudget     decimal.Decimal `json:"total_budget"`
	TotalExpenses   decimal.Decimal `json:"total_expenses"`
	RemainingBudget decimal.Decimal `json:"remaining_budget"`
	AlertThreshold  decimal.Decimal `json:"alert_threshold"`
	NearLimit       bool            `json:"near_limit"`
	Month           int             `json:"month"`
	Year            int             `json:"year"`
}

// BudgetServicer defines the contract for the per-user global budget.
type BudgetServicer interface {
	SetBudget(ctx context.Context, userID string, amount decimal.Decimal) (*BudgetStatus, error)
	// GetBudgetStatus returns nil without error when no budget is configured.
	GetBudgetStatus(ctx context.Context, userID string, month, year *int) (*BudgetStatus, error)
	GetRemainingBudget(ctx context.Context, userID string) (decimal.Decimal, error)
}

// CategoryBudgetServicer defines the contract for per-category limits.
type CategoryBudgetServicer interface {
	// UpsertCategoryBudget creates a limit when existingID is empty and
	// updates that row otherwise.
	UpsertCategoryBudget(ctx context.Context, userID, categoryID string, amount decimal.Decimal, existingID string) (*models.CategoryBudget, error)
	GetCategoryBudget(ctx context.Context, userID, id string) (*models.CategoryBudget, error)
	ListCategoryBudgets(ctx context.Context, userID string) ([]models.CategoryBudget, error)
	DeleteCategoryBudget(ctx context.Context, id string) error
}

// Candidate is a prospective expense write submitted to the budget gate.
type Candidate struct {
	UserID     string
	CategoryID *string
	Amount     decimal.Decimal
	// ExcludeExpenseID leaves an existing expense out of the running totals
	// when it is being replaced by this candidate.
	ExcludeExpenseID string
}

// ExpenseGater decides whether a candidate expense fits the user's budgets.
// A nil error means accepted.
type ExpenseGater interface {
	Check(ctx context.Context, c Candidate) error
}

// ExpenseInput carries the writable fields of an expense.
type ExpenseInput struct {
	CategoryID  *string
	Name        string
	Description string
	Amount      decimal.Decimal
	Date        time.Time
	Recurring   bool
	Recurrence  models.RecurrencePolicy
}

// ExpenseFilter holds optional filter parameters for listing expenses.
type ExpenseFilter = storage.ExpenseFilter

// ExpenseServicer defines the contract for expense-related business logic.
type ExpenseServicer interface {
	CreateExpense(ctx context.Context, userID string, in ExpenseInput) (*models.Expense, error)
	UpdateExpense(ctx context.Context, userID, expenseID string, in ExpenseInput) (*models.Expense, error)
	GetExpenseByID(ctx context.Context, userID, expenseID string) (*models.Expense, error)
	GetUserExpenses(ctx context.Context, userID string, page pagination.PageRequest, filter ExpenseFilter) (*pagination.PageResponse[models.Expense], error)
	DeleteExpense(ctx context.Context, userID, expenseID string) error
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(ctx context.Context, userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}

// CategorySpend is one category's share of a monthly report.
type CategorySpend struct {
	CategoryID *string         `json:"category_id"`
	Category   string          `json:"category"`
	Total      decimal.Decimal `json:"total"`
}

// MonthlyReport summarizes one calendar month of a user's spend.
type MonthlyReport struct {
	Month          int             `json:"month"`
	Year           int             `json:"year"`
	TotalExpenses  decimal.Decimal `json:"total_expenses"`
	CategoryTotals []CategorySpend `json:"category_totals"`
	// TopCategory is nil when nothing was spent.
	TopCategory *string `json:"top_category"`
	// RemainingBudget is nil when no budget is configured.
	RemainingBudget *decimal.Decimal `json:"remaining_budget"`
}

// ReportServicer defines the contract for spend reports.
type ReportServicer interface {
	GetMonthlyReport(ctx context.Context, userID string, month, year *int) (*MonthlyReport, error)
}
