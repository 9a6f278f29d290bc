package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Manudeeprao/expense-tracker/internal/clock"
	apperrors "github.com/Manudeeprao/expense-tracker/internal/errors"
	"github.com/Manudeeprao/expense-tracker/internal/models"
	"github.com/Manudeeprao/expense-tracker/internal/storage"
)

// alertRatio is the share of the total budget below which the remaining
// amount is reported as near the limit.
var alertRatio = decimal.New(1, -1)

// budgetLedgerStore is the slice of the ledger port the budget service reads.
type budgetLedgerStore interface {
	storage.UserFinder
	storage.BudgetStore
	SumExpensesForUserInPeriod(ctx context.Context, userID string, month, year int) (decimal.Decimal, error)
}

// budgetService handles the per-user global budget.
type budgetService struct {
	store budgetLedgerStore
	clock clock.Clock
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(store budgetLedgerStore, clk clock.Clock) BudgetServicer {
	return &budgetService{store: store, clock: clk}
}

// SetBudget creates the user's budget or overwrites its total.
func (s *budgetService) SetBudget(ctx context.Context, userID string, amount decimal.Decimal) (*BudgetStatus, error) {
	if err := requireUser(ctx, s.store, userID); err != nil {
		return nil, err
	}

	budget, err := s.store.FindBudgetByUser(ctx, userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		budget = &models.Budget{UserID: userID}
	case err != nil:
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	budget.TotalBudget = amount
	if err := s.store.SaveBudget(ctx, budget); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	now := s.clock.Now()
	return s.status(ctx, budget, int(now.Month()), now.Year())
}

// GetBudgetStatus reports spend against the budget for one calendar month,
// defaulting to the current one.
func (s *budgetService) GetBudgetStatus(ctx context.Context, userID string, month, year *int) (*BudgetStatus, error) {
	m, y, err := resolvePeriod(s.clock.Now(), month, year)
	if err != nil {
		return nil, err
	}

	if err := requireUser(ctx, s.store, userID); err != nil {
		return nil, err
	}

	budget, err := s.store.FindBudgetByUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.status(ctx, budget, m, y)
}

// GetRemainingBudget returns what is left of the budget this month.
func (s *budgetService) GetRemainingBudget(ctx context.Context, userID string) (decimal.Decimal, error) {
	status, err := s.GetBudgetStatus(ctx, userID, nil, nil)
	if err != nil {
		return decimal.Zero, err
	}
	if status == nil {
		return decimal.Zero, apperrors.ErrBudgetNotConfigured
	}
	return status.RemainingBudget, nil
}

// resolvePeriod defaults a missing month or year to now's and rejects
// months outside 1..12.
func resolvePeriod(now time.Time, month, year *int) (int, int, error) {
	m, y := int(now.Month()), now.Year()
	if month != nil {
		m = *month
	}
	if year != nil {
		y = *year
	}
	if m < 1 || m > 12 {
		return 0, 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be between 1 and 12")
	}
	return m, y, nil
}

func requireUser(ctx context.Context, users storage.UserFinder, userID string) error {
	if _, err := users.FindUser(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.ErrUserNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *budgetService) status(ctx context.Context, budget *models.Budget, month, year int) (*BudgetStatus, error) {
	spent, err := s.store.SumExpensesForUserInPeriod(ctx, budget.UserID, month, year)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	remaining := budget.TotalBudget.Sub(spent)
	threshold := budget.TotalBudget.Mul(alertRatio)

	return &BudgetStatus{
		ID:              budget.ID,
		UserID:          budget.UserID,
		TotalBudget:     budget.TotalBudget,
		TotalExpenses:   spent,
		RemainingBudget: remaining,
		AlertThreshold:  threshold,
		NearLimit:       remaining.LessThanOrEqual(threshold),
		Month:           month,
		Year:            year,
	}, nil
}
