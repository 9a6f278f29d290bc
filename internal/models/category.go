package models

// Category groups expenses for reporting and per-category limits.
type Category struct {
	Base
	UserID      string `gorm:"type:uuid;not null;index" json:"user_id"`
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}
