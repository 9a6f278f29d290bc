package services

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"github.com/Manudeeprao/expense-tracker/internal/logger"
	"github.com/Manudeeprao/expense-tracker/internal/models"
)

// Audited mutations.
const (
	AuditSetBudget            = "SET_BUDGET"
	AuditCreateCategoryBudget = "CREATE_CATEGORY_BUDGET"
	AuditUpdateCategoryBudget = "UPDATE_CATEGORY_BUDGET"
	AuditDeleteCategoryBudget = "DELETE_CATEGORY_BUDGET"
	AuditCreateExpense        = "CREATE_EXPENSE"
	AuditUpdateExpense        = "UPDATE_EXPENSE"
	AuditDeleteExpense        = "DELETE_EXPENSE"
)

// Audited resource types.
const (
	ResourceBudget         = "budget"
	ResourceCategoryBudget = "category_budget"
	ResourceExpense        = "expense"
)

// ExpenseChanges is the audit snapshot of an expense after a write.
func ExpenseChanges(e *models.Expense) map[string]interface{} {
	changes := map[string]interface{}{
		"name":       e.Name,
		"amount":     e.Amount.String(),
		"date":       e.Date.Format("2006-01-02"),
		"recurrence": string(e.Recurrence),
	}
	if e.CategoryID != nil {
		changes["category_id"] = *e.CategoryID
	}
	return changes
}

// auditService appends to the audit_logs table.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an audit event. Failures are logged and swallowed; an audit
// write never fails the mutation it describes.
func (s *auditService) Log(ctx context.Context, userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{}) {
	log := logger.Named("audit").With(
		"user_id", userID,
		"action", action,
		"resource_type", resourceType,
		"resource_id", resourceID,
	)

	if userID == "" || action == "" {
		log.Warnw("Dropping incomplete audit entry")
		return
	}

	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
	}
	if len(changes) > 0 {
		data, err := json.Marshal(changes)
		if err != nil {
			log.Errorw("Failed to encode audit changes", "error", err)
			data = []byte("{}")
		}
		entry.Changes = string(data)
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		log.Errorw("Failed to write audit entry", "error", err)
	}
}
