package model

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"gitlab.com/timkado/api/daisi-callback-board/pkg/utils"
)

// NewCallWrapupPayload creates a CallWrapupPayload with fake data. Non-zero fields
// of the optional override replace the defaults.
func NewCallWrapupPayload(overrideDefaults ...*CallWrapupPayload) *CallWrapupPayload {
	leadID := gofakeit.UUID()
	phone := gofakeit.Phone()

	base := &CallWrapupPayload{
		CallActivityID: gofakeit.UUID(),
		UserID:         gofakeit.UUID(),
		CompanyID:      "CC" + gofakeit.DigitN(4),
		LeadID:         &leadID,
		LeadName:       gofakeit.Name(),
		PhoneNumber:    &phone,
		Notes:          gofakeit.RandomString(fakeNotes),
		EndedAt:        utils.Now().Add(-time.Duration(gofakeit.Number(1, 300)) * time.Second),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.CallActivityID != "" {
			base.CallActivityID = ovr.CallActivityID
		}
		if ovr.UserID != "" {
			base.UserID = ovr.UserID
		}
		if ovr.CompanyID != "" {
			base.CompanyID = ovr.CompanyID
		}
		if ovr.LeadID != nil {
			base.LeadID = ovr.LeadID
		}
		if ovr.LeadName != "" {
			base.LeadName = ovr.LeadName
		}
		if ovr.PhoneNumber != nil {
			base.PhoneNumber = ovr.PhoneNumber
		}
		if ovr.Notes != "" {
			base.Notes = ovr.Notes
		}
		if !ovr.EndedAt.IsZero() {
			base.EndedAt = ovr.EndedAt
		}
	}
	return base
}
