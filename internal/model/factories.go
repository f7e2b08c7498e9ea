package model

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"gitlab.com/timkado/api/daisi-callback-board/pkg/utils"
)

func init() {
	gofakeit.Seed(time.Now().UnixNano())
}

var fakeNotes = []string{
	"Customer asked to call back tomorrow morning",
	"Busy in a meeting, follow up next week",
	"Interested, please reach out in a few days",
	"Not interested at the moment",
	"Left voicemail, try again later today",
	"Important: must call back ASAP about renewal",
	"Wants a callback in a month after budget approval",
}

// NewCallback creates a pending Callback with fake data. Non-zero fields of the
// optional override replace the defaults.
func NewCallback(overrideDefaults ...*Callback) *Callback {
	notes := gofakeit.RandomString(fakeNotes)
	phone := gofakeit.Phone()
	leadID := gofakeit.UUID()
	now := utils.Now()

	base := &Callback{
		ID:           gofakeit.UUID(),
		UserID:       gofakeit.UUID(),
		LeadID:       &leadID,
		ScheduledFor: now.Add(time.Duration(gofakeit.Number(1, 240)) * time.Hour),
		Priority:     Priority(gofakeit.RandomString([]string{"low", "medium", "high", "urgent"})),
		Status:       StatusPending,
		Notes:        &notes,
		LeadName:     gofakeit.Name(),
		PhoneNumber:  &phone,
		CreatedAt:    now.Add(-time.Duration(gofakeit.Number(1, 72)) * time.Hour),
		UpdatedAt:    now,
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.UserID != "" {
			base.UserID = ovr.UserID
		}
		if ovr.LeadID != nil {
			base.LeadID = ovr.LeadID
		}
		if ovr.CallActivityID != nil {
			base.CallActivityID = ovr.CallActivityID
		}
		if !ovr.ScheduledFor.IsZero() {
			base.ScheduledFor = ovr.ScheduledFor
		}
		if ovr.Priority != "" {
			base.Priority = ovr.Priority
		}
		if ovr.Status != "" {
			base.Status = ovr.Status
		}
		if ovr.Notes != nil {
			base.Notes = ovr.Notes
		}
		if ovr.LeadName != "" {
			base.LeadName = ovr.LeadName
		}
		if ovr.PhoneNumber != nil {
			base.PhoneNumber = ovr.PhoneNumber
		}
		if !ovr.CreatedAt.IsZero() {
			base.CreatedAt = ovr.CreatedAt
		}
		if !ovr.UpdatedAt.IsZero() {
			base.UpdatedAt = ovr.UpdatedAt
		}
	}
	return base
}
