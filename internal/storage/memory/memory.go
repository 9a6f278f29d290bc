// Package memory provides an in-memory storage.Ledger for tests and local
// experiments. All methods are safe for concurrent use.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Manudeeprao/expense-tracker/internal/models"
	"github.com/Manudeeprao/expense-tracker/internal/pagination"
	"github.com/Manudeeprao/expense-tracker/internal/storage"
	"github.com/Manudeeprao/expense-tracker/internal/uuid"
)

// Store keeps every record in maps keyed by ID.
type Store struct {
	mu              sync.RWMutex
	users           map[string]models.User
	categoryNames   map[string]string
	budgets         map[string]models.Budget
	categoryBudgets map[string]models.CategoryBudget
	expenses        map[string]models.Expense
	templates       map[string]models.RecurrenceTemplate

	// FailSaveExpense, when set, is consulted before every SaveExpense and
	// its error returned instead of persisting.
	FailSaveExpense func(*models.Expense) error
	// FailDeleteTemplate works the same way for DeleteTemplateBySource.
	FailDeleteTemplate func(sourceExpenseID string) error
}

var _ storage.Ledger = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:           make(map[string]models.User),
		categoryNames:   make(map[string]string),
		budgets:         make(map[string]models.Budget),
		categoryBudgets: make(map[string]models.CategoryBudget),
		expenses:        make(map[string]models.Expense),
		templates:       make(map[string]models.RecurrenceTemplate),
	}
}

// AddUser registers a user and returns its ID.
func (s *Store) AddUser(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := models.User{Base: models.Base{ID: uuid.New()}, Email: email, IsActive: true}
	s.users[u.ID] = u
	return u.ID
}

// AddCategory records a category name for grouped reports and returns its ID.
func (s *Store) AddCategory(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.categoryNames[id] = name
	return id
}

func stamp(b *models.Base) {
	now := time.Now()
	if b.ID == "" {
		b.ID = uuid.New()
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

func (s *Store) FindUser(_ context.Context, userID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &u, nil
}

func (s *Store) FindBudgetByUser(_ context.Context, userID string) (*models.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.budgets {
		if b.UserID == userID {
			return &b, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) SaveBudget(_ context.Context, budget *models.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&budget.Base)
	s.budgets[budget.ID] = *budget
	return nil
}

func (s *Store) FindCategoryBudget(_ context.Context, userID, categoryID string) (*models.CategoryBudget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, cb := range s.categoryBudgets {
		if cb.UserID == userID && cb.CategoryID == categoryID {
			return &cb, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) FindCategoryBudgetByID(_ context.Context, id string) (*models.CategoryBudget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cb, ok := s.categoryBudgets[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &cb, nil
}

func (s *Store) SaveCategoryBudget(_ context.Context, budget *models.CategoryBudget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if budget.ID == "" {
		budget.ID = uuid.New()
	}
	s.categoryBudgets[budget.ID] = *budget
	return nil
}

func (s *Store) DeleteCategoryBudget(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.categoryBudgets, id)
	return nil
}

func (s *Store) ListCategoryBudgetsByUser(_ context.Context, userID string) ([]models.CategoryBudget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.CategoryBudget
	for _, cb := range s.categoryBudgets {
		if cb.UserID == userID {
			out = append(out, cb)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// sumWhere adds up the amounts of every expense matching keep.
func (s *Store) sumWhere(keep func(models.Expense) bool) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, e := range s.expenses {
		if keep(e) {
			total = total.Add(e.Amount)
		}
	}
	return total
}

func (s *Store) SumExpensesForUser(_ context.Context, userID, excludeID string) (decimal.Decimal, error) {
	return s.sumWhere(func(e models.Expense) bool {
		return e.UserID == userID && e.ID != excludeID
	}), nil
}

func (s *Store) SumExpensesForUserInPeriod(_ context.Context, userID string, month, year int) (decimal.Decimal, error) {
	start, end := models.MonthRange(month, year)
	return s.sumWhere(func(e models.Expense) bool {
		return e.UserID == userID && !e.Date.Before(start) && e.Date.Before(end)
	}), nil
}

func (s *Store) SumExpensesForUserAndCategory(_ context.Context, userID, categoryID, excludeID string) (decimal.Decimal, error) {
	return s.sumWhere(func(e models.Expense) bool {
		return e.UserID == userID && e.CategoryID != nil && *e.CategoryID == categoryID && e.ID != excludeID
	}), nil
}

func (s *Store) SumExpensesByCategoryInPeriod(_ context.Context, userID string, month, year int) ([]storage.CategoryTotal, error) {
	start, end := models.MonthRange(month, year)
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCategory := make(map[string]*storage.CategoryTotal)
	for _, e := range s.expenses {
		if e.UserID != userID || e.Date.Before(start) || !e.Date.Before(end) {
			continue
		}
		key := ""
		if e.CategoryID != nil {
			key = *e.CategoryID
		}
		row, ok := byCategory[key]
		if !ok {
			row = &storage.CategoryTotal{CategoryID: e.CategoryID, CategoryName: s.categoryNames[key]}
			byCategory[key] = row
		}
		row.Total = row.Total.Add(e.Amount)
	}

	out := make([]storage.CategoryTotal, 0, len(byCategory))
	for _, row := range byCategory {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].CategoryName < out[j].CategoryName
	})
	return out, nil
}

func (s *Store) ListExpenses(_ context.Context, userID string, filter storage.ExpenseFilter, page pagination.PageRequest) ([]models.Expense, int64, error) {
	s.mu.RLock()
	var matched []models.Expense
	for _, e := range s.expenses {
		if e.UserID == userID && filterMatches(filter, &e) {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date) {
			return matched[i].Date.After(matched[j].Date)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := min(page.Offset(), total)
	end := min(start+page.PageSize, total)
	return matched[start:end], int64(total), nil
}

func filterMatches(f storage.ExpenseFilter, e *models.Expense) bool {
	switch {
	case f.CategoryID != nil && (e.CategoryID == nil || *e.CategoryID != *f.CategoryID):
		return false
	case f.FromDate != nil && e.Date.Before(models.DateOf(*f.FromDate)):
		return false
	case f.ToDate != nil && e.Date.After(models.DateOf(*f.ToDate)):
		return false
	case f.MinAmount != nil && e.Amount.LessThan(*f.MinAmount):
		return false
	case f.MaxAmount != nil && e.Amount.GreaterThan(*f.MaxAmount):
		return false
	}
	name := strings.ToLower(strings.TrimSpace(f.Name))
	return name == "" || strings.Contains(strings.ToLower(e.Name), name)
}

func (s *Store) FindExpense(_ context.Context, id string) (*models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.expenses[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &e, nil
}

func (s *Store) ExistsExpense(_ context.Context, userID, name string, date time.Time) (bool, error) {
	day := models.DateOf(date)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.expenses {
		if e.UserID == userID && e.Name == name && e.Date.Equal(day) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) SaveExpense(_ context.Context, expense *models.Expense) error {
	if s.FailSaveExpense != nil {
		if err := s.FailSaveExpense(expense); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&expense.Base)
	s.expenses[expense.ID] = *expense
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expenses, id)
	return nil
}

func (s *Store) ListActiveTemplates(_ context.Context) ([]models.RecurrenceTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.RecurrenceTemplate
	for _, t := range s.templates {
		if t.Active {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) FindTemplateBySource(_ context.Context, sourceExpenseID string) (*models.RecurrenceTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.templates {
		if t.SourceExpenseID == sourceExpenseID {
			return &t, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) SaveTemplate(_ context.Context, template *models.RecurrenceTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&template.Base)
	s.templates[template.ID] = *template
	return nil
}

func (s *Store) DeleteTemplateBySource(_ context.Context, sourceExpenseID string) error {
	if s.FailDeleteTemplate != nil {
		if err := s.FailDeleteTemplate(sourceExpenseID); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.templates {
		if t.SourceExpenseID == sourceExpenseID {
			delete(s.templates, id)
		}
	}
	return nil
}

// Expenses returns a snapshot of every stored expense.
func (s *Store) Expenses() []models.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		out = append(out, e)
	}
	return out
}

// Templates returns a snapshot of every stored template.
func (s *Store) Templates() []models.RecurrenceTemplate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.RecurrenceTemplate, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t)
	}
	return out
}
