package services

import (
	"context"
	"errors"
	"strings"

	"github.com/Manudeeprao/expense-tracker/internal/clock"
	apperrors "github.com/Manudeeprao/expense-tracker/internal/errors"
	"github.com/Manudeeprao/expense-tracker/internal/logger"
	"github.com/Manudeeprao/expense-tracker/internal/models"
	"github.com/Manudeeprao/expense-tracker/internal/pagination"
	"github.com/Manudeeprao/expense-tracker/internal/storage"
)

// expenseLedgerStore is the slice of the ledger port the expense service writes.
type expenseLedgerStore interface {
	storage.ExpenseStore
	storage.TemplateStore
}

// categoryLookup resolves a category owned by a user.
type categoryLookup interface {
	GetCategoryByID(ctx context.Context, userID, categoryID string) (*models.Category, error)
}

// expenseService handles expense writes behind the budget gate and keeps
// recurrence templates in step with their source expense.
type expenseService struct {
	store      expenseLedgerStore
	gate       ExpenseGater
	categories categoryLookup
	clock      clock.Clock
	// locks is nil unless strict gating is enabled; when set, check and
	// write run under a per-user mutex.
	locks *userLocks
}

// NewExpenseService creates a new ExpenseServicer. With strict set, the gate
// check and the write are serialized per user within this process.
func NewExpenseService(store expenseLedgerStore, gate ExpenseGater, categories categoryLookup, clk clock.Clock, strict bool) ExpenseServicer {
	s := &expenseService{store: store, gate: gate, categories: categories, clock: clk}
	if strict {
		s.locks = newUserLocks()
	}
	return s
}

// CreateExpense validates, gates and persists a new expense.
func (s *expenseService) CreateExpense(ctx context.Context, userID string, in ExpenseInput) (*models.Expense, error) {
	in, err := s.normalize(ctx, userID, in)
	if err != nil {
		return nil, err
	}

	unlock := s.lock(userID)
	defer unlock()

	if err := s.gate.Check(ctx, Candidate{UserID: userID, CategoryID: in.CategoryID, Amount: in.Amount}); err != nil {
		return nil, err
	}

	expense := &models.Expense{UserID: userID}
	apply(expense, in)
	if err := s.store.SaveExpense(ctx, expense); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.syncTemplate(ctx, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

// UpdateExpense replaces an expense's fields. The expense's current amount
// is left out of the running totals when re-gating.
func (s *expenseService) UpdateExpense(ctx context.Context, userID, expenseID string, in ExpenseInput) (*models.Expense, error) {
	in, err := s.normalize(ctx, userID, in)
	if err != nil {
		return nil, err
	}

	unlock := s.lock(userID)
	defer unlock()

	expense, err := s.GetExpenseByID(ctx, userID, expenseID)
	if err != nil {
		return nil, err
	}

	err = s.gate.Check(ctx, Candidate{
		UserID:           userID,
		CategoryID:       in.CategoryID,
		Amount:           in.Amount,
		ExcludeExpenseID: expense.ID,
	})
	if err != nil {
		return nil, err
	}

	apply(expense, in)
	if err := s.store.SaveExpense(ctx, expense); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.syncTemplate(ctx, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

// GetExpenseByID returns an expense if it belongs to the user.
func (s *expenseService) GetExpenseByID(ctx context.Context, userID, expenseID string) (*models.Expense, error) {
	expense, err := s.store.FindExpense(ctx, expenseID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.ErrExpenseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if expense.UserID != userID {
		return nil, apperrors.ErrExpenseNotFound
	}
	return expense, nil
}

// GetUserExpenses lists the user's expenses, newest first, with optional filters.
func (s *expenseService) GetUserExpenses(
	ctx context.Context,
	userID string,
	page pagination.PageRequest,
	filter ExpenseFilter,
) (*pagination.PageResponse[models.Expense], error) {
	page.Defaults()

	expenses, totalItems, err := s.store.ListExpenses(ctx, userID, filter, page)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(expenses, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// DeleteExpense removes an expense and any template it is the source of.
// The template goes first so a failure never leaves it without a source.
func (s *expenseService) DeleteExpense(ctx context.Context, userID, expenseID string) error {
	expense, err := s.GetExpenseByID(ctx, userID, expenseID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteTemplateBySource(ctx, expense.ID); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.store.DeleteExpense(ctx, expense.ID); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *expenseService) lock(userID string) func() {
	if s.locks == nil {
		return func() {}
	}
	return s.locks.lock(userID)
}

// normalize validates the input and fills defaults: today's date, the NONE
// policy, and a nil category for an empty ID.
func (s *expenseService) normalize(ctx context.Context, userID string, in ExpenseInput) (ExpenseInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, apperrors.WithMessage(apperrors.ErrInvalidInput, "expense name is required")
	}
	if !in.Amount.IsPositive() {
		return in, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if in.Recurrence == "" {
		in.Recurrence = models.RecurrenceNone
	}
	if !in.Recurrence.Valid() {
		return in, apperrors.WithMessage(apperrors.ErrInvalidInput, "recurrence must be one of NONE, DAILY, WEEKLY, MONTHLY")
	}

	if in.Date.IsZero() {
		in.Date = s.clock.Now()
	}
	in.Date = models.DateOf(in.Date)

	if in.CategoryID != nil && *in.CategoryID == "" {
		in.CategoryID = nil
	}
	if in.CategoryID != nil {
		if _, err := s.categories.GetCategoryByID(ctx, userID, *in.CategoryID); err != nil {
			return in, err
		}
	}
	return in, nil
}

func apply(e *models.Expense, in ExpenseInput) {
	e.CategoryID = in.CategoryID
	e.Name = in.Name
	e.Description = in.Description
	e.Amount = in.Amount
	e.Date = in.Date
	e.Recurring = in.Recurring
	e.Recurrence = in.Recurrence
	e.Category = nil
}

// syncTemplate creates, refreshes or deactivates the recurrence template
// sourced from e. Generated instances never own a template.
func (s *expenseService) syncTemplate(ctx context.Context, e *models.Expense) error {
	if e.TemplateID != nil {
		return nil
	}

	recurs := e.Recurring && e.Recurrence != models.RecurrenceNone

	tpl, err := s.store.FindTemplateBySource(ctx, e.ID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if !recurs {
			return nil
		}
		tpl = &models.RecurrenceTemplate{
			UserID:          e.UserID,
			SourceExpenseID: e.ID,
			AnchorDate:      e.Date,
		}
	case err != nil:
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	case !recurs:
		if !tpl.Active {
			return nil
		}
		tpl.Active = false
		return s.saveTemplate(ctx, tpl)
	}

	tpl.Policy = e.Recurrence
	tpl.Active = true
	tpl.CategoryID = e.CategoryID
	tpl.Name = e.Name
	tpl.Description = e.Description
	tpl.Amount = e.Amount
	return s.saveTemplate(ctx, tpl)
}

func (s *expenseService) saveTemplate(ctx context.Context, tpl *models.RecurrenceTemplate) error {
	if err := s.store.SaveTemplate(ctx, tpl); err != nil {
		logger.Get().Errorw("failed to save recurrence template",
			"error", err,
			"source_expense_id", tpl.SourceExpenseID,
		)
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
