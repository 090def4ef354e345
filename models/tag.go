package models

import "time"

// Tag is a named label attached to tasks. Names are globally unique and
// case-sensitive.
type Tag struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	Name      string    `gorm:"not null;uniqueIndex" json:"name"`
	Color     *string   `json:"color"` // hex-like string, not validated
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}
