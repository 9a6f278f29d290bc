package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	apperrors "github.com/Manudeeprao/expense-tracker/internal/errors"
	"github.com/Manudeeprao/expense-tracker/internal/logger"
	"github.com/Manudeeprao/expense-tracker/internal/metrics"
	"github.com/Manudeeprao/expense-tracker/internal/models"
	"github.com/Manudeeprao/expense-tracker/internal/storage"
)

// gateStore is the slice of the ledger port the gate reads.
type gateStore interface {
	FindBudgetByUser(ctx context.Context, userID string) (*models.Budget, error)
	FindCategoryBudget(ctx context.Context, userID, categoryID string) (*models.CategoryBudget, error)
	SumExpensesForUser(ctx context.Context, userID, excludeID string) (decimal.Decimal, error)
	SumExpensesForUserAndCategory(ctx context.Context, userID, categoryID, excludeID string) (decimal.Decimal, error)
}

// expenseGate checks candidate expenses against the global budget and the
// optional per-category limit. Totals cover the user's whole history, not
// only the current month.
type expenseGate struct {
	store gateStore
}

// NewExpenseGate creates a new ExpenseGater.
func NewExpenseGate(store gateStore) ExpenseGater {
	return &expenseGate{store: store}
}

// Check returns nil when the candidate fits, or the rejection reason.
func (g *expenseGate) Check(ctx context.Context, c Candidate) error {
	err := g.check(ctx, c)
	metrics.GateDecisions.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.StatusCode < 500 {
			logger.Named("gate").Debugw("expense rejected", "user_id", c.UserID, "amount", c.Amount, "reason", appErr.Code)
		}
	}
	return err
}

func (g *expenseGate) check(ctx context.Context, c Candidate) error {
	budget, err := g.store.FindBudgetByUser(ctx, c.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.ErrBudgetNotConfigured
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	spent, err := g.store.SumExpensesForUser(ctx, c.UserID, c.ExcludeExpenseID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if spent.Add(c.Amount).GreaterThan(budget.TotalBudget) {
		return apperrors.ErrBudgetExceeded
	}

	if c.CategoryID == nil || *c.CategoryID == "" {
		return nil
	}

	limit, err := g.store.FindCategoryBudget(ctx, c.UserID, *c.CategoryID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	spentInCategory, err := g.store.SumExpensesForUserAndCategory(ctx, c.UserID, *c.CategoryID, c.ExcludeExpenseID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if spentInCategory.Add(c.Amount).GreaterThan(limit.Amount) {
		return apperrors.ErrCategoryBudgetExceeded
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, apperrors.ErrBudgetNotConfigured):
		return "budget_not_configured"
	case errors.Is(err, apperrors.ErrBudgetExceeded):
		return "budget_exceeded"
	case errors.Is(err, apperrors.ErrCategoryBudgetExceeded):
		return "category_budget_exceeded"
	default:
		return "error"
	}
}
