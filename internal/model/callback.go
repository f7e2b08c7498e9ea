package model

import (
	"time"

	"gorm.io/gorm/schema"
)

// Priority ranks how soon an agent should act on a callback.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Status is the lifecycle state of a callback. Only pending callbacks are shown on the board.
type Status string

const (
	StatusPending     Status = "pending"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusRescheduled Status = "rescheduled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled, StatusRescheduled:
		return true
	}
	return false
}

// Callback is a scheduled follow-up call owned by one agent.
// Board bucket and overdue state are derived from ScheduledFor and never stored.
type Callback struct {
	ID             string    `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	UserID         string    `gorm:"column:user_id;type:text;not null;index:idx_callbacks_user_status_schedule,priority:1" json:"user_id" validate:"required"`
	LeadID         *string   `gorm:"column:lead_id;type:text;index" json:"lead_id"`
	CallActivityID *string   `gorm:"column:call_activity_id;type:text;uniqueIndex" json:"call_activity_id"`
	ScheduledFor   time.Time `gorm:"column:scheduled_for;not null;index:idx_callbacks_user_status_schedule,priority:3" json:"scheduled_for" validate:"required"`
	Priority       Priority  `gorm:"column:priority;type:text;not null;default:medium" json:"priority" validate:"required,callback_priority"`
	Status         Status    `gorm:"column:status;type:text;not null;default:pending;index:idx_callbacks_user_status_schedule,priority:2" json:"status" validate:"required,callback_status"`
	Notes          *string   `gorm:"column:notes;type:text" json:"notes"`
	LeadName       string    `gorm:"column:lead_name;type:text" json:"lead_name"`
	PhoneNumber    *string   `gorm:"column:phone_number;type:text" json:"phone_number"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the Callback model, respecting the Namer.
func (Callback) TableName(namer schema.Namer) string {
	return namer.TableName("callbacks")
}

// IsPending reports whether the callback should appear on the board.
func (c Callback) IsPending() bool {
	return c.Status == StatusPending
}
