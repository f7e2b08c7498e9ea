package model

import (
	"encoding/json"
	"time"
)

// --- NATS payloads --- //

// CallWrapupPayload is published when an agent ends a call and saves wrap-up notes.
type CallWrapupPayload struct {
	CallActivityID string    `json:"call_activity_id" validate:"required"`
	UserID         string    `json:"user_id" validate:"required"`
	CompanyID      string    `json:"company_id,omitempty" validate:"omitempty"`
	LeadID         *string   `json:"lead_id,omitempty" validate:"omitempty"`
	LeadName       string    `json:"lead_name,omitempty" validate:"omitempty,max=255"`
	PhoneNumber    *string   `json:"phone_number,omitempty" validate:"omitempty,max=32"`
	Notes          string    `json:"notes" validate:"max=10000"`
	EndedAt        time.Time `json:"ended_at,omitempty"`
}

// ChangeAction describes what happened to a callback.
type ChangeAction string

const (
	ChangeCreated     ChangeAction = "created"
	ChangeUpdated     ChangeAction = "updated"
	ChangeRescheduled ChangeAction = "rescheduled"
	ChangeDeleted     ChangeAction = "deleted"
)

// CallbackChangeEvent notifies board sessions that a user's callbacks changed.
// It carries no row data; receivers refetch.
type CallbackChangeEvent struct {
	UserID     string       `json:"user_id"`
	CallbackID string       `json:"callback_id"`
	Action     ChangeAction `json:"action"`
	At         time.Time    `json:"at"`
}

// DLQPayload is the envelope written to the dead letter subject.
type DLQPayload struct {
	SourceSubject   string          `json:"source_subject"`
	Company         string          `json:"company"`
	OriginalPayload json.RawMessage `json:"original_payload"`
	Error           string          `json:"error"`
	ErrorType       string          `json:"error_type"` // fatal, retryable or unknown
	RetryCount      uint64          `json:"retry_count"`
	MaxRetry        int             `json:"max_retry"`
	NextRetryAt     *time.Time      `json:"next_retry_at,omitempty"`
	Timestamp       time.Time       `json:"ts"`
}

// --- HTTP payloads --- //

// CreateCallbackPayload creates a callback manually from the board.
type CreateCallbackPayload struct {
	LeadID         *string   `json:"lead_id,omitempty" validate:"omitempty"`
	CallActivityID *string   `json:"call_activity_id,omitempty" validate:"omitempty"`
	ScheduledFor   time.Time `json:"scheduled_for" validate:"required"`
	Priority       Priority  `json:"priority,omitempty" validate:"omitempty,callback_priority"`
	Notes          *string   `json:"notes,omitempty" validate:"omitempty,max=10000"`
	LeadName       string    `json:"lead_name" validate:"required,max=255"`
	PhoneNumber    *string   `json:"phone_number,omitempty" validate:"omitempty,max=32"`
}

// Nullable callback columns that a partial update may reset to null.
const (
	ClearNotes       = "notes"
	ClearPhoneNumber = "phone_number"
	ClearLeadID      = "lead_id"
)

// UpdateCallbackPayload is a partial update; nil fields are left untouched.
// JSON null cannot be told apart from an absent field, so nullable columns are
// reset by naming them in Clear instead.
type UpdateCallbackPayload struct {
	ScheduledFor *time.Time `json:"scheduled_for,omitempty" validate:"omitempty"`
	Priority     *Priority  `json:"priority,omitempty" validate:"omitempty,callback_priority"`
	Status       *Status    `json:"status,omitempty" validate:"omitempty,callback_status"`
	Notes        *string    `json:"notes,omitempty" validate:"omitempty,max=10000"`
	LeadName     *string    `json:"lead_name,omitempty" validate:"omitempty,max=255"`
	PhoneNumber  *string    `json:"phone_number,omitempty" validate:"omitempty,max=32"`
	Clear        []string   `json:"clear,omitempty" validate:"omitempty,max=3,dive,oneof=notes phone_number lead_id"`
}

// ClearConflict returns the first column that is both set and cleared, or "".
func (p UpdateCallbackPayload) ClearConflict() string {
	for _, column := range p.Clear {
		switch {
		case column == ClearNotes && p.Notes != nil,
			column == ClearPhoneNumber && p.PhoneNumber != nil:
			return column
		}
	}
	return ""
}

// Fields returns the column updates for the non-nil fields. Cleared columns map
// to nil, which GORM writes as NULL.
func (p UpdateCallbackPayload) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if p.ScheduledFor != nil {
		fields["scheduled_for"] = p.ScheduledFor.UTC()
	}
	if p.Priority != nil {
		fields["priority"] = *p.Priority
	}
	if p.Status != nil {
		fields["status"] = *p.Status
	}
	if p.Notes != nil {
		fields["notes"] = *p.Notes
	}
	if p.LeadName != nil {
		fields["lead_name"] = *p.LeadName
	}
	if p.PhoneNumber != nil {
		fields["phone_number"] = *p.PhoneNumber
	}
	for _, column := range p.Clear {
		fields[column] = nil
	}
	return fields
}

// ReschedulePayload is sent when a card is dropped. Target is the drop target's
// ID: a board column (today, thisWeek, nextWeek, later) or a card.
type ReschedulePayload struct {
	Target string `json:"target" validate:"required,max=64"`
}

// IntentPreviewPayload asks the service how it would read a set of notes.
type IntentPreviewPayload struct {
	Notes string `json:"notes" validate:"max=10000"`
}
