package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Manudeeprao/expense-tracker/internal/models"
	"github.com/Manudeeprao/expense-tracker/internal/testutil"
)

func TestAuditLog(t *testing.T) {
	t.Run("records_changes", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAuditService(db)
		user := testutil.CreateTestUser(t, db)

		svc.Log(ctx, user.ID, "SET_BUDGET", "budget", "b-1", "127.0.0.1", map[string]interface{}{"total_budget": "1000"})

		var entries []models.AuditLog
		if err := db.Where("user_id = ?", user.ID).Find(&entries).Error; err != nil {
			t.Fatalf("query audit logs: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(entries))
		}
		if entries[0].Action != "SET_BUDGET" || entries[0].ResourceID != "b-1" {
			t.Errorf("unexpected entry %+v", entries[0])
		}
		if entries[0].Changes != `{"total_budget":"1000"}` {
			t.Errorf("unexpected changes %s", entries[0].Changes)
		}
	})

	t.Run("nil_changes", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAuditService(db)
		user := testutil.CreateTestUser(t, db)

		svc.Log(ctx, user.ID, "DELETE_EXPENSE", "expense", "e-1", "", nil)

		var entry models.AuditLog
		if err := db.Where("user_id = ?", user.ID).First(&entry).Error; err != nil {
			t.Fatalf("query audit log: %v", err)
		}
		if entry.Changes != "" {
			t.Errorf("expected empty changes, got %q", entry.Changes)
		}
	})

	t.Run("incomplete_entry_dropped", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAuditService(db)

		svc.Log(ctx, "", AuditDeleteExpense, ResourceExpense, "e-1", "", nil)

		var count int64
		db.Model(&models.AuditLog{}).Count(&count)
		if count != 0 {
			t.Errorf("expected no entries, got %d", count)
		}
	})
}

func TestExpenseChanges(t *testing.T) {
	categoryID := "cat-1"
	changes := ExpenseChanges(&models.Expense{
		Name:       "Rent",
		Amount:     decimal.RequireFromString("950.50"),
		Date:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Recurrence: models.RecurrenceMonthly,
		CategoryID: &categoryID,
	})

	want := map[string]interface{}{
		"name":        "Rent",
		"amount":      "950.5",
		"date":        "2024-03-01",
		"recurrence":  "MONTHLY",
		"category_id": "cat-1",
	}
	for k, v := range want {
		if changes[k] != v {
			t.Errorf("%s = %v, want %v", k, changes[k], v)
		}
	}

	if _, ok := ExpenseChanges(&models.Expense{Name: "Bus"})["category_id"]; ok {
		t.Error("expected no category_id for an uncategorized expense")
	}
}
