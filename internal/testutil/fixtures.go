package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Manudeeprao/expense-tracker/internal/models"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestCategory creates a category owned by the user.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID string) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID: userID,
		Name:   fmt.Sprintf("Test Category %d", nextID()),
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestBudget sets the user's global budget to total.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID string, total int64) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:      userID,
		TotalBudget: decimal.NewFromInt(total),
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestCategoryBudget limits spending in a category.
func CreateTestCategoryBudget(t *testing.T, db *gorm.DB, userID, categoryID string, amount int64) *models.CategoryBudget {
	t.Helper()

	cb := &models.CategoryBudget{
		UserID:     userID,
		CategoryID: categoryID,
		Amount:     decimal.NewFromInt(amount),
	}
	if err := db.Create(cb).Error; err != nil {
		t.Fatalf("failed to create test category budget: %v", err)
	}
	return cb
}

// CreateTestExpense records an expense on the given date. categoryID may be nil.
func CreateTestExpense(t *testing.T, db *gorm.DB, userID string, categoryID *string, amount int64, date time.Time) *models.Expense {
	t.Helper()

	expense := &models.Expense{
		UserID:     userID,
		CategoryID: categoryID,
		Name:       fmt.Sprintf("Test Expense %d", nextID()),
		Amount:     decimal.NewFromInt(amount),
		Date:       models.DateOf(date),
		Recurrence: models.RecurrenceNone,
	}
	if err := db.Create(expense).Error; err != nil {
		t.Fatalf("failed to create test expense: %v", err)
	}
	return expense
}
