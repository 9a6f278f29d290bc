package testutil_test

import (
	"testing"
	"time"

	"github.com/Manudeeprao/expense-tracker/internal/errors"
	"github.com/Manudeeprao/expense-tracker/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	// Verify all tables exist by doing a simple count query on each model.
	var count int64
	for _, table := range []string{"users", "categories", "budgets", "category_budgets", "expenses", "recurrence_templates", "audit_logs"} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	if user.ID == "" {
		t.Fatal("user should have a non-empty ID")
	}

	category := testutil.CreateTestCategory(t, db, user.ID)
	budget := testutil.CreateTestBudget(t, db, user.ID, 1000)
	testutil.AssertDecimal(t, budget.TotalBudget, "1000")

	cb := testutil.CreateTestCategoryBudget(t, db, user.ID, category.ID, 200)
	if cb.ID == "" {
		t.Fatal("category budget should have a non-empty ID")
	}

	expense := testutil.CreateTestExpense(t, db, user.ID, &category.ID, 50, time.Now())
	testutil.AssertDecimal(t, expense.Amount, "50")
}

func TestAssertAppError(t *testing.T) {
	err := errors.WithMessage(errors.ErrBudgetExceeded, "custom message")
	testutil.AssertAppError(t, err, "BUDGET_EXCEEDED")
}

func TestAssertNoError(t *testing.T) {
	testutil.AssertNoError(t, nil)
}
