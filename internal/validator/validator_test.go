package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-callback-board/internal/apperrors"
	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
)

func TestValidateCreatePayload(t *testing.T) {
	valid := model.CreateCallbackPayload{
		ScheduledFor: time.Now(),
		LeadName:     "Budi Santoso",
		Priority:     model.PriorityHigh,
	}
	assert.NoError(t, Validate(valid))

	noPriority := valid
	noPriority.Priority = ""
	assert.NoError(t, Validate(noPriority), "priority is optional and defaults later")

	err := Validate(model.CreateCallbackPayload{Priority: "critical"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
	assert.Contains(t, err.Error(), "field 'scheduled_for' is required")
	assert.Contains(t, err.Error(), "field 'lead_name' is required")
	assert.Contains(t, err.Error(), "field 'priority' must be one of: low medium high urgent")
}

func TestValidateUpdatePayloadPointers(t *testing.T) {
	assert.NoError(t, Validate(model.UpdateCallbackPayload{}))

	done := model.StatusCompleted
	assert.NoError(t, Validate(model.UpdateCallbackPayload{Status: &done}))

	bogus := model.Status("archived")
	err := Validate(model.UpdateCallbackPayload{Status: &bogus})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'status' must be one of")

	assert.NoError(t, Validate(model.UpdateCallbackPayload{Clear: []string{model.ClearNotes, model.ClearLeadID}}))
	err = Validate(model.UpdateCallbackPayload{Clear: []string{"lead_name"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be one of: notes phone_number lead_id")
}

func TestValidateReschedulePayload(t *testing.T) {
	assert.NoError(t, Validate(model.ReschedulePayload{Target: "nextWeek"}))

	err := Validate(model.ReschedulePayload{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'target' is required")
}

func TestValidateWrapupPayload(t *testing.T) {
	assert.NoError(t, Validate(model.NewCallWrapupPayload()))

	err := Validate(model.CallWrapupPayload{Notes: "call back"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'call_activity_id' is required")
	assert.Contains(t, err.Error(), "field 'user_id' is required")
}
