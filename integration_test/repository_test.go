//go:build integration

package integration_test

import (
	"time"

	"github.com/google/uuid"

	"gitlab.com/timkado/api/daisi-callback-board/internal/apperrors"
	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
)

func (s *CallbackBoardSuite) TestCallbackRepository_ListIsScopedAndOrdered() {
	now := time.Now().UTC().Truncate(time.Second)
	userA, userB := uuid.NewString(), uuid.NewString()

	later := model.NewCallback(&model.Callback{UserID: userA, ScheduledFor: now.Add(48 * time.Hour)})
	sooner := model.NewCallback(&model.Callback{UserID: userA, ScheduledFor: now.Add(time.Hour)})
	done := model.NewCallback(&model.Callback{UserID: userA, ScheduledFor: now, Status: model.StatusCompleted})
	other := model.NewCallback(&model.Callback{UserID: userB, ScheduledFor: now})

	for _, cb := range []*model.Callback{later, sooner, done, other} {
		cb.CallActivityID = nil
		_, err := s.Repo.CreateCallback(s.Ctx, *cb)
		s.Require().NoError(err)
	}

	pending, err := s.Repo.ListPendingCallbacks(s.Ctx, userA)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	s.Equal(sooner.ID, pending[0].ID)
	s.Equal(later.ID, pending[1].ID)

	_, err = s.Repo.FindCallbackByID(s.Ctx, userB, sooner.ID)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *CallbackBoardSuite) TestCallbackRepository_DuplicateCallActivity() {
	activity := uuid.NewString()
	user := uuid.NewString()

	first := model.NewCallback(&model.Callback{UserID: user, CallActivityID: &activity})
	_, err := s.Repo.CreateCallback(s.Ctx, *first)
	s.Require().NoError(err)

	second := model.NewCallback(&model.Callback{UserID: user, CallActivityID: &activity})
	_, err = s.Repo.CreateCallback(s.Ctx, *second)
	s.ErrorIs(err, apperrors.ErrDuplicate)

	found, err := s.Repo.FindCallbackByCallActivityID(s.Ctx, user, activity)
	s.Require().NoError(err)
	s.Equal(first.ID, found.ID)
}

func (s *CallbackBoardSuite) TestCallbackRepository_UpdateAndDelete() {
	user := uuid.NewString()
	cb := model.NewCallback(&model.Callback{UserID: user})
	cb.CallActivityID = nil
	_, err := s.Repo.CreateCallback(s.Ctx, *cb)
	s.Require().NoError(err)

	target := time.Now().UTC().Add(7 * 24 * time.Hour).Truncate(time.Second)
	updated, err := s.Repo.UpdateCallback(s.Ctx, user, cb.ID, map[string]interface{}{
		"scheduled_for": target,
		"status":        model.StatusRescheduled,
	})
	s.Require().NoError(err)
	s.True(target.Equal(updated.ScheduledFor.UTC()))
	s.Equal(model.StatusRescheduled, updated.Status)

	cleared, err := s.Repo.UpdateCallback(s.Ctx, user, cb.ID, model.UpdateCallbackPayload{Clear: []string{model.ClearNotes}}.Fields())
	s.Require().NoError(err)
	s.Nil(cleared.Notes)

	_, err = s.Repo.UpdateCallback(s.Ctx, uuid.NewString(), cb.ID, map[string]interface{}{"notes": "x"})
	s.ErrorIs(err, apperrors.ErrNotFound)

	s.Require().NoError(s.Repo.DeleteCallback(s.Ctx, user, cb.ID))
	s.ErrorIs(s.Repo.DeleteCallback(s.Ctx, user, cb.ID), apperrors.ErrNotFound)
}
