package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-callback-board/internal/apperrors"
	"gitlab.com/timkado/api/daisi-callback-board/internal/intent"
	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
	"gitlab.com/timkado/api/daisi-callback-board/internal/observer"
	"gitlab.com/timkado/api/daisi-callback-board/internal/validator"
	"gitlab.com/timkado/api/daisi-callback-board/pkg/logger"
)

// PreviewIntent reports how notes would be read right now without creating anything.
func (s *CallbackService) PreviewIntent(ctx context.Context, payload model.IntentPreviewPayload) (intent.Result, error) {
	if err := validator.Validate(payload); err != nil {
		return intent.Result{}, err
	}
	return intent.Parse(payload.Notes, s.Now()), nil
}

// CreateFromNotes turns a call wrap-up into a pending callback when the notes
// ask for one. Redelivered wrap-ups for the same call activity return the
// existing callback with created=false. Errors are RetryableError or FatalError.
func (s *CallbackService) CreateFromNotes(ctx context.Context, wrapup model.CallWrapupPayload) (cb *model.Callback, created bool, err error) {
	log := logger.FromContext(ctx).With(
		zap.String("call_activity_id", wrapup.CallActivityID),
		zap.String("user_id", wrapup.UserID),
	)

	if err := validator.Validate(wrapup); err != nil {
		log.Error("Wrap-up payload validation failed", zap.Error(err))
		return nil, false, apperrors.NewFatal(err, "wrap-up payload validation failed")
	}

	existing, err := s.callbackRepo.FindByCallActivityID(ctx, wrapup.UserID, wrapup.CallActivityID)
	switch {
	case err == nil:
		log.Info("Callback already exists for call activity, skipping", zap.String("callback_id", existing.ID))
		return existing, false, nil
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, false, classifyRepoError(err, "callback lookup")
	}

	result := intent.Parse(wrapup.Notes, s.Now())
	observer.IncIntentDecision(result.Rule, result.ShouldCreateCallback)
	if !result.ShouldCreateCallback {
		log.Debug("Notes do not request a callback")
		return nil, false, nil
	}

	activityID := wrapup.CallActivityID
	var notes *string
	if wrapup.Notes != "" {
		n := wrapup.Notes
		notes = &n
	}

	createdCb, err := s.callbackRepo.Create(ctx, model.Callback{
		UserID:         wrapup.UserID,
		LeadID:         wrapup.LeadID,
		CallActivityID: &activityID,
		ScheduledFor:   result.CallbackDate.UTC(),
		Priority:       result.Priority,
		Status:         model.StatusPending,
		Notes:          notes,
		LeadName:       wrapup.LeadName,
		PhoneNumber:    wrapup.PhoneNumber,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			// a concurrent delivery won the insert
			if winner, findErr := s.callbackRepo.FindByCallActivityID(ctx, wrapup.UserID, wrapup.CallActivityID); findErr == nil {
				return winner, false, nil
			}
		}
		log.Error("Failed to create callback from notes", zap.Error(err))
		return nil, false, classifyRepoError(err, "callback create")
	}

	observer.IncCallbacksCreated("intent", string(createdCb.Priority))
	s.notify(ctx, createdCb.UserID, createdCb.ID, model.ChangeCreated)
	log.Info("Callback created from notes",
		zap.String("callback_id", createdCb.ID),
		zap.String("rule", result.Rule),
		zap.Time("scheduled_for", createdCb.ScheduledFor),
		zap.String("priority", string(createdCb.Priority)))
	return createdCb, true, nil
}
