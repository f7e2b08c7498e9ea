package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-callback-board/internal/apperrors"
	"gitlab.com/timkado/api/daisi-callback-board/internal/board"
	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
	"gitlab.com/timkado/api/daisi-callback-board/internal/observer"
	"gitlab.com/timkado/api/daisi-callback-board/internal/realtime"
	"gitlab.com/timkado/api/daisi-callback-board/internal/storage"
	"gitlab.com/timkado/api/daisi-callback-board/internal/validator"
	"gitlab.com/timkado/api/daisi-callback-board/pkg/logger"
	"gitlab.com/timkado/api/daisi-callback-board/pkg/utils"
)

// CallbackService is the callback store accessor used by the API, the board
// stream and the wrap-up consumer. Every call is scoped to one user.
type CallbackService struct {
	callbackRepo       storage.CallbackRepo
	exhaustedEventRepo storage.ExhaustedEventRepo
	publisher          realtime.Publisher
	subscriber         realtime.Subscriber
	loc                *time.Location
	now                func() time.Time
}

// NewCallbackService creates the service. Board windows and intent dates are
// computed in loc; nil means UTC.
func NewCallbackService(
	callbackRepo storage.CallbackRepo,
	exhaustedEventRepo storage.ExhaustedEventRepo,
	publisher realtime.Publisher,
	subscriber realtime.Subscriber,
	loc *time.Location,
) *CallbackService {
	if loc == nil {
		loc = time.UTC
	}
	return &CallbackService{
		callbackRepo:       callbackRepo,
		exhaustedEventRepo: exhaustedEventRepo,
		publisher:          publisher,
		subscriber:         subscriber,
		loc:                loc,
		now:                utils.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *CallbackService) WithClock(now func() time.Time) *CallbackService {
	s.now = now
	return s
}

// Now returns the current time in the board's location.
func (s *CallbackService) Now() time.Time {
	return s.now().In(s.loc)
}

func requireUser(userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: missing user id", apperrors.ErrUnauthorized)
	}
	return nil
}

// requireID rejects IDs that cannot be a callback primary key, so they read as
// not found instead of a database type error.
func requireID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: callback %s", apperrors.ErrNotFound, id)
	}
	return nil
}

// notify publishes a change. The write already succeeded, so failures are only logged.
func (s *CallbackService) notify(ctx context.Context, userID, callbackID string, action model.ChangeAction) {
	if s.publisher == nil {
		return
	}
	event := model.CallbackChangeEvent{UserID: userID, CallbackID: callbackID, Action: action, At: utils.Now()}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.FromContext(ctx).Warn("Callback change not published, open boards will catch up on next change",
			zap.String("callback_id", callbackID),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

// List returns the user's pending callbacks ordered by scheduled time.
func (s *CallbackService) List(ctx context.Context, userID string) ([]model.Callback, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.callbackRepo.ListPending(ctx, userID)
}

// Board returns the bucketed board for the user at the current time.
func (s *CallbackService) Board(ctx context.Context, userID string) (board.Snapshot, error) {
	callbacks, err := s.List(ctx, userID)
	if err != nil {
		return board.Snapshot{}, err
	}
	return board.Build(callbacks, s.Now()), nil
}

// Get returns one of the user's callbacks regardless of status.
func (s *CallbackService) Get(ctx context.Context, userID, id string) (*model.Callback, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := requireID(id); err != nil {
		return nil, err
	}
	return s.callbackRepo.FindByID(ctx, userID, id)
}

// Create adds a pending callback entered by hand.
func (s *CallbackService) Create(ctx context.Context, userID string, payload model.CreateCallbackPayload) (*model.Callback, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := validator.Validate(payload); err != nil {
		return nil, err
	}

	priority := payload.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}

	created, err := s.callbackRepo.Create(ctx, model.Callback{
		ID:             uuid.NewString(),
		UserID:         userID,
		LeadID:         payload.LeadID,
		CallActivityID: payload.CallActivityID,
		ScheduledFor:   payload.ScheduledFor.UTC(),
		Priority:       priority,
		Status:         model.StatusPending,
		Notes:          payload.Notes,
		LeadName:       payload.LeadName,
		PhoneNumber:    payload.PhoneNumber,
	})
	if err != nil {
		return nil, err
	}

	observer.IncCallbacksCreated("manual", string(created.Priority))
	s.notify(ctx, userID, created.ID, model.ChangeCreated)
	return created, nil
}

// Update applies a partial edit.
func (s *CallbackService) Update(ctx context.Context, userID, id string, payload model.UpdateCallbackPayload) (*model.Callback, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := requireID(id); err != nil {
		return nil, err
	}
	if err := validator.Validate(payload); err != nil {
		return nil, err
	}
	if column := payload.ClearConflict(); column != "" {
		return nil, fmt.Errorf("%w: field '%s' is both set and cleared", apperrors.ErrValidation, column)
	}

	fields := payload.Fields()
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", apperrors.ErrBadRequest)
	}
	return s.update(ctx, userID, id, fields, model.ChangeUpdated)
}

func (s *CallbackService) update(ctx context.Context, userID, id string, fields map[string]interface{}, action model.ChangeAction) (*model.Callback, error) {
	updated, err := s.callbackRepo.Update(ctx, userID, id, fields)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, userID, updated.ID, action)
	return updated, nil
}

// Complete marks the callback done, removing it from the board.
func (s *CallbackService) Complete(ctx context.Context, userID, id string) (*model.Callback, error) {
	return s.setStatus(ctx, userID, id, model.StatusCompleted)
}

// Cancel marks the callback cancelled, removing it from the board.
func (s *CallbackService) Cancel(ctx context.Context, userID, id string) (*model.Callback, error) {
	return s.setStatus(ctx, userID, id, model.StatusCancelled)
}

func (s *CallbackService) setStatus(ctx context.Context, userID, id string, status model.Status) (*model.Callback, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := requireID(id); err != nil {
		return nil, err
	}
	return s.update(ctx, userID, id, map[string]interface{}{"status": status}, model.ChangeUpdated)
}

// Delete removes the callback permanently.
func (s *CallbackService) Delete(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := requireID(id); err != nil {
		return err
	}
	if err := s.callbackRepo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.notify(ctx, userID, id, model.ChangeDeleted)
	return nil
}

// Reschedule handles a card drop. target is a column ID or a card ID. When the
// card is dropped on itself nothing is written and the stored callback is
// returned with changed=false.
func (s *CallbackService) Reschedule(ctx context.Context, userID, id, target string) (cb *model.Callback, changed bool, err error) {
	current, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, false, err
	}

	transition, ok, err := board.Reschedule(*current, target, s.Now())
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return current, false, nil
	}

	updated, err := s.update(ctx, userID, id, transition.Fields(), model.ChangeRescheduled)
	if err != nil {
		logger.FromContext(ctx).Warn("Reschedule failed",
			zap.String("callback_id", id),
			zap.String("to", string(transition.To)),
			zap.Error(err))
		return nil, false, err
	}

	observer.IncReschedule(string(transition.From), string(transition.To))
	return updated, true, nil
}

// Subscribe registers onChange for the user's change notifications.
func (s *CallbackService) Subscribe(ctx context.Context, userID string, onChange func(model.CallbackChangeEvent)) (func(), error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if s.subscriber == nil {
		return nil, fmt.Errorf("%w: change feed not configured", apperrors.ErrNATS)
	}
	return s.subscriber.Subscribe(userID, onChange)
}

// Subscriber exposes the change feed for board sessions.
func (s *CallbackService) Subscriber() realtime.Subscriber {
	return subscriberFunc(s.Subscribe)
}

type subscriberFunc func(ctx context.Context, userID string, onChange func(model.CallbackChangeEvent)) (func(), error)

func (f subscriberFunc) Subscribe(userID string, onChange func(model.CallbackChangeEvent)) (func(), error) {
	return f(context.Background(), userID, onChange)
}

// classifyRepoError decides whether a storage failure should be redelivered.
func classifyRepoError(err error, operation string) error {
	if errors.Is(err, apperrors.ErrDatabase) || errors.Is(err, apperrors.ErrTimeout) || errors.Is(err, apperrors.ErrConflict) || errors.Is(err, apperrors.ErrNATS) {
		return apperrors.NewRetryable(err, "retryable repository error during %s", operation)
	}
	return apperrors.NewFatal(err, "fatal repository error during %s", operation)
}
