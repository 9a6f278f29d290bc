package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/Manudeeprao/expense-tracker/internal/clock"
	apperrors "github.com/Manudeeprao/expense-tracker/internal/errors"
	"github.com/Manudeeprao/expense-tracker/internal/models"
	"github.com/Manudeeprao/expense-tracker/internal/storage"
)

// uncategorizedLabel names the bucket for expenses without a category.
const uncategorizedLabel = "Uncategorized"

// reportStore is the slice of the ledger port the report service reads.
type reportStore interface {
	storage.UserFinder
	FindBudgetByUser(ctx context.Context, userID string) (*models.Budget, error)
	SumExpensesByCategoryInPeriod(ctx context.Context, userID string, month, year int) ([]storage.CategoryTotal, error)
}

// reportService builds read-only spend summaries.
type reportService struct {
	store reportStore
	clock clock.Clock
}

// NewReportService creates a new ReportServicer.
func NewReportService(store reportStore, clk clock.Clock) ReportServicer {
	return &reportService{store: store, clock: clk}
}

// GetMonthlyReport totals one month of spend per category, names the
// largest, and subtracts the month's total from the budget if one is set.
func (s *reportService) GetMonthlyReport(ctx context.Context, userID string, month, year *int) (*MonthlyReport, error) {
	m, y, err := resolvePeriod(s.clock.Now(), month, year)
	if err != nil {
		return nil, err
	}
	if err := requireUser(ctx, s.store, userID); err != nil {
		return nil, err
	}

	totals, err := s.store.SumExpensesByCategoryInPeriod(ctx, userID, m, y)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	report := &MonthlyReport{
		Month:          m,
		Year:           y,
		TotalExpenses:  decimal.Zero,
		CategoryTotals: make([]CategorySpend, 0, len(totals)),
	}
	for _, row := range totals {
		name := row.CategoryName
		if row.CategoryID == nil || name == "" {
			name = uncategorizedLabel
		}
		report.CategoryTotals = append(report.CategoryTotals, CategorySpend{
			CategoryID: row.CategoryID,
			Category:   name,
			Total:      row.Total,
		})
		report.TotalExpenses = report.TotalExpenses.Add(row.Total)

		// Rows arrive largest first.
		if report.TopCategory == nil && row.Total.IsPositive() {
			top := name
			report.TopCategory = &top
		}
	}

	budget, err := s.store.FindBudgetByUser(ctx, userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	default:
		remaining := budget.TotalBudget.Sub(report.TotalExpenses)
		report.RemainingBudget = &remaining
	}

	return report, nil
}
