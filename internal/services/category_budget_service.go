package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	apperrors "github.com/Manudeeprao/expense-tracker/internal/errors"
	"github.com/Manudeeprao/expense-tracker/internal/models"
	"github.com/Manudeeprao/expense-tracker/internal/storage"
)

// categoryBudgetService handles per-category spending limits.
type categoryBudgetService struct {
	store storage.CategoryBudgetStore
}

// NewCategoryBudgetService creates a new CategoryBudgetServicer.
func NewCategoryBudgetService(store storage.CategoryBudgetStore) CategoryBudgetServicer {
	return &categoryBudgetService{store: store}
}

// UpsertCategoryBudget creates or updates a limit while keeping at most one
// row per (user, category).
func (s *categoryBudgetService) UpsertCategoryBudget(
	ctx context.Context,
	userID, categoryID string,
	amount decimal.Decimal,
	existingID string,
) (*models.CategoryBudget, error) {
	if userID == "" || categoryID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "user and category are required")
	}

	conflict, err := s.store.FindCategoryBudget(ctx, userID, categoryID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err != nil {
		conflict = nil
	}

	budget := &models.CategoryBudget{}
	if existingID == "" {
		if conflict != nil {
			return nil, apperrors.ErrDuplicateCategoryBudget
		}
	} else {
		if conflict != nil && conflict.ID != existingID {
			return nil, apperrors.ErrDuplicateCategoryBudget
		}
		budget, err = s.GetCategoryBudget(ctx, userID, existingID)
		if err != nil {
			return nil, err
		}
	}

	budget.UserID = userID
	budget.CategoryID = categoryID
	budget.Amount = amount

	if err := s.store.SaveCategoryBudget(ctx, budget); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budget, nil
}

// GetCategoryBudget returns a limit by ID if it belongs to the user.
func (s *categoryBudgetService) GetCategoryBudget(ctx context.Context, userID, id string) (*models.CategoryBudget, error) {
	budget, err := s.store.FindCategoryBudgetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.ErrCategoryBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if budget.UserID != userID {
		return nil, apperrors.ErrCategoryBudgetNotFound
	}
	return budget, nil
}

// ListCategoryBudgets returns every limit the user has configured.
func (s *categoryBudgetService) ListCategoryBudgets(ctx context.Context, userID string) ([]models.CategoryBudget, error) {
	budgets, err := s.store.ListCategoryBudgetsByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if budgets == nil {
		budgets = []models.CategoryBudget{}
	}
	return budgets, nil
}

// DeleteCategoryBudget removes a limit. Ownership is checked by callers.
func (s *categoryBudgetService) DeleteCategoryBudget(ctx context.Context, id string) error {
	if err := s.store.DeleteCategoryBudget(ctx, id); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
