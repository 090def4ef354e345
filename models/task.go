package models

import (
	"time"

	"github.com/google/uuid"
)

// Task is a to-do item. Tags holds the resolved tag names; the association
// rows live in task_tags and are managed by the task service.
//
// Version starts at 1 and is bumped by exactly 1 on every successful update.
// The stored value is authoritative; a version supplied by a client is
// ignored (last-writer-wins, no compare-and-swap).
type Task struct {
	ID          string     `gorm:"type:text;primaryKey" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Notes       *string    `json:"notes"`
	DueDate     *string    `json:"due_date"` // ISO 8601 date (YYYY-MM-DD)
	DueTime     *string    `json:"due_time"` // ISO 8601 time (HH:MM:SS)
	Priority    int        `gorm:"default:0" json:"priority"` // 0=none, 1=low, 2=medium, 3=high
	Completed   bool       `gorm:"default:false" json:"completed"`
	CompletedAt *time.Time `json:"completed_at"` // set iff Completed
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	ModifiedAt  time.Time  `gorm:"not null" json:"modified_at"`
	DeviceID    string     `json:"device_id"`
	Version     int        `gorm:"default:1" json:"version"`
	Tags        []string   `gorm:"-" json:"tags"`
}

// TaskTag is one row of the task/tag many-to-many association.
type TaskTag struct {
	TaskID string `gorm:"primaryKey;column:task_id"`
	TagID  string `gorm:"primaryKey;column:tag_id"`
}

func (TaskTag) TableName() string {
	return "task_tags"
}

// NewTaskID generates an opaque task identifier.
func NewTaskID() string {
	return uuid.New().String()
}
