// Package gormstore implements the ledger port on top of GORM, so the same
// code serves PostgreSQL in production and SQLite in tests.
package gormstore

import (
	"context"
	"errors"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Manudeeprao/expense-tracker/internal/models"
	"github.com/Manudeeprao/expense-tracker/internal/pagination"
	"github.com/Manudeeprao/expense-tracker/internal/storage"
)

// Store is a GORM-backed storage.Ledger.
type Store struct {
	db *gorm.DB
}

var _ storage.Ledger = (*Store)(nil)

// New creates a Store over an open GORM connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// first loads a single row into dest, translating a missing row into
// storage.ErrNotFound.
func first(q *gorm.DB, dest interface{}, what string) error {
	if err := q.First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("find %s: %w", what, err)
	}
	return nil
}

// sum runs a COALESCE(SUM(amount)) over the filtered expenses. The result
// is scanned through database/sql so decimal.Decimal's Scanner handles both
// PostgreSQL numerics and SQLite integers/reals.
func sum(q *gorm.DB) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := q.Select("COALESCE(SUM(amount), 0)").Row().Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum expenses: %w", err)
	}
	return total.Round(2), nil
}

func (s *Store) FindUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := first(s.conn(ctx).Where("id = ?", userID), &user, "user"); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) FindBudgetByUser(ctx context.Context, userID string) (*models.Budget, error) {
	var budget models.Budget
	if err := first(s.conn(ctx).Where("user_id = ?", userID), &budget, "budget"); err != nil {
		return nil, err
	}
	return &budget, nil
}

func (s *Store) SaveBudget(ctx context.Context, budget *models.Budget) error {
	if err := s.conn(ctx).Save(budget).Error; err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	return nil
}

func (s *Store) FindCategoryBudget(ctx context.Context, userID, categoryID string) (*models.CategoryBudget, error) {
	var cb models.CategoryBudget
	q := s.conn(ctx).Where("user_id = ? AND category_id = ?", userID, categoryID)
	if err := first(q, &cb, "category budget"); err != nil {
		return nil, err
	}
	return &cb, nil
}

func (s *Store) FindCategoryBudgetByID(ctx context.Context, id string) (*models.CategoryBudget, error) {
	var cb models.CategoryBudget
	if err := first(s.conn(ctx).Where("id = ?", id), &cb, "category budget"); err != nil {
		return nil, err
	}
	return &cb, nil
}

func (s *Store) SaveCategoryBudget(ctx context.Context, budget *models.CategoryBudget) error {
	if err := s.conn(ctx).Save(budget).Error; err != nil {
		return fmt.Errorf("save category budget: %w", err)
	}
	return nil
}

func (s *Store) DeleteCategoryBudget(ctx context.Context, id string) error {
	if err := s.conn(ctx).Where("id = ?", id).Delete(&models.CategoryBudget{}).Error; err != nil {
		return fmt.Errorf("delete category budget: %w", err)
	}
	return nil
}

func (s *Store) ListCategoryBudgetsByUser(ctx context.Context, userID string) ([]models.CategoryBudget, error) {
	var budgets []models.CategoryBudget
	if err := s.conn(ctx).Where("user_id = ?", userID).Find(&budgets).Error; err != nil {
		return nil, fmt.Errorf("list category budgets: %w", err)
	}
	return budgets, nil
}

func (s *Store) expenses(ctx context.Context) *gorm.DB {
	return s.conn(ctx).Model(&models.Expense{})
}

func (s *Store) SumExpensesForUser(ctx context.Context, userID, excludeID string) (decimal.Decimal, error) {
	q := s.expenses(ctx).Where("user_id = ?", userID)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	return sum(q)
}

func (s *Store) SumExpensesForUserInPeriod(ctx context.Context, userID string, month, year int) (decimal.Decimal, error) {
	start, end := models.MonthRange(month, year)
	q := s.expenses(ctx).Where("user_id = ? AND date >= ? AND date < ?", userID, start, end)
	return sum(q)
}

func (s *Store) SumExpensesForUserAndCategory(ctx context.Context, userID, categoryID, excludeID string) (decimal.Decimal, error) {
	q := s.expenses(ctx).Where("user_id = ? AND category_id = ?", userID, categoryID)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	return sum(q)
}

// SumExpensesByCategoryInPeriod groups one month of spend by category,
// largest first. Soft-deleted categories keep their name.
func (s *Store) SumExpensesByCategoryInPeriod(ctx context.Context, userID string, month, year int) ([]storage.CategoryTotal, error) {
	start, end := models.MonthRange(month, year)
	rows, err := s.expenses(ctx).
		Select("expenses.category_id, COALESCE(categories.name, ''), COALESCE(SUM(expenses.amount), 0) AS total").
		Joins("LEFT JOIN categories ON categories.id = expenses.category_id").
		Where("expenses.user_id = ? AND expenses.date >= ? AND expenses.date < ?", userID, start, end).
		Group("expenses.category_id, categories.name").
		Order("total DESC, categories.name").
		Rows()
	if err != nil {
		return nil, fmt.Errorf("sum expenses by category: %w", err)
	}
	defer rows.Close()

	var totals []storage.CategoryTotal
	for rows.Next() {
		var (
			categoryID sql.NullString
			row        storage.CategoryTotal
		)
		if err := rows.Scan(&categoryID, &row.CategoryName, &row.Total); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		if categoryID.Valid {
			row.CategoryID = &categoryID.String
		}
		row.Total = row.Total.Round(2)
		totals = append(totals, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sum expenses by category: %w", err)
	}
	return totals, nil
}

func (s *Store) ListExpenses(ctx context.Context, userID string, filter storage.ExpenseFilter, page pagination.PageRequest) ([]models.Expense, int64, error) {
	base := s.expenses(ctx).Where("user_id = ?", userID)
	base = applyExpenseFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, 0, fmt.Errorf("count expenses: %w", err)
	}

	var expenses []models.Expense
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC, created_at DESC").
		Find(&expenses).Error; err != nil {
		return nil, 0, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, totalItems, nil
}

func applyExpenseFilters(q *gorm.DB, f storage.ExpenseFilter) *gorm.DB {
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.FromDate != nil {
		q = q.Where("date >= ?", models.DateOf(*f.FromDate))
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", models.DateOf(*f.ToDate))
	}
	if f.MinAmount != nil {
		q = q.Where("amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		q = q.Where("amount <= ?", *f.MaxAmount)
	}
	if name := strings.TrimSpace(f.Name); name != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	return q
}

func (s *Store) FindExpense(ctx context.Context, id string) (*models.Expense, error) {
	var expense models.Expense
	if err := first(s.conn(ctx).Where("id = ?", id), &expense, "expense"); err != nil {
		return nil, err
	}
	return &expense, nil
}

func (s *Store) ExistsExpense(ctx context.Context, userID, name string, date time.Time) (bool, error) {
	var count int64
	err := s.expenses(ctx).
		Where("user_id = ? AND name = ? AND date = ?", userID, name, models.DateOf(date)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check expense exists: %w", err)
	}
	return count > 0, nil
}

func (s *Store) SaveExpense(ctx context.Context, expense *models.Expense) error {
	if err := s.conn(ctx).Omit("Category").Save(expense).Error; err != nil {
		return fmt.Errorf("save expense: %w", err)
	}
	return nil
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	if err := s.conn(ctx).Where("id = ?", id).Delete(&models.Expense{}).Error; err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

func (s *Store) ListActiveTemplates(ctx context.Context) ([]models.RecurrenceTemplate, error) {
	var templates []models.RecurrenceTemplate
	if err := s.conn(ctx).Where("active = ?", true).Order("created_at").Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

func (s *Store) FindTemplateBySource(ctx context.Context, sourceExpenseID string) (*models.RecurrenceTemplate, error) {
	var template models.RecurrenceTemplate
	if err := first(s.conn(ctx).Where("source_expense_id = ?", sourceExpenseID), &template, "template"); err != nil {
		return nil, err
	}
	return &template, nil
}

func (s *Store) SaveTemplate(ctx context.Context, template *models.RecurrenceTemplate) error {
	if err := s.conn(ctx).Save(template).Error; err != nil {
		return fmt.Errorf("save template: %w", err)
	}
	return nil
}

func (s *Store) DeleteTemplateBySource(ctx context.Context, sourceExpenseID string) error {
	err := s.conn(ctx).Unscoped().
		Where("source_expense_id = ?", sourceExpenseID).
		Delete(&models.RecurrenceTemplate{}).Error
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}
