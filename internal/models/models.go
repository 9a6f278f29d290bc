// Package models defines the GORM records persisted by the expense tracker.
package models

// All lists every model, in dependency order, for auto-migration.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Category{},
		&Budget{},
		&CategoryBudget{},
		&Expense{},
		&RecurrenceTemplate{},
		&AuditLog{},
	}
}
