package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gitlab.com/timkado/api/daisi-callback-board/internal/board"
	"gitlab.com/timkado/api/daisi-callback-board/internal/intent"
	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
	"gitlab.com/timkado/api/daisi-callback-board/internal/realtime"
)

// CallbackServiceMock mocks api.CallbackService
type CallbackServiceMock struct {
	mock.Mock
}

func (m *CallbackServiceMock) List(ctx context.Context, userID string) ([]model.Callback, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Callback), args.Error(1)
}

func (m *CallbackServiceMock) Board(ctx context.Context, userID string) (board.Snapshot, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(board.Snapshot), args.Error(1)
}

func (m *CallbackServiceMock) Get(ctx context.Context, userID, id string) (*model.Callback, error) {
	args := m.Called(ctx, userID, id)
	return callbackOrNil(args.Get(0)), args.Error(1)
}

func (m *CallbackServiceMock) Create(ctx context.Context, userID string, payload model.CreateCallbackPayload) (*model.Callback, error) {
	args := m.Called(ctx, userID, payload)
	return callbackOrNil(args.Get(0)), args.Error(1)
}

func (m *CallbackServiceMock) Update(ctx context.Context, userID, id string, payload model.UpdateCallbackPayload) (*model.Callback, error) {
	args := m.Called(ctx, userID, id, payload)
	return callbackOrNil(args.Get(0)), args.Error(1)
}

func (m *CallbackServiceMock) Complete(ctx context.Context, userID, id string) (*model.Callback, error) {
	args := m.Called(ctx, userID, id)
	return callbackOrNil(args.Get(0)), args.Error(1)
}

func (m *CallbackServiceMock) Cancel(ctx context.Context, userID, id string) (*model.Callback, error) {
	args := m.Called(ctx, userID, id)
	return callbackOrNil(args.Get(0)), args.Error(1)
}

func (m *CallbackServiceMock) Delete(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *CallbackServiceMock) Reschedule(ctx context.Context, userID, id, target string) (*model.Callback, bool, error) {
	args := m.Called(ctx, userID, id, target)
	return callbackOrNil(args.Get(0)), args.Bool(1), args.Error(2)
}

func (m *CallbackServiceMock) PreviewIntent(ctx context.Context, payload model.IntentPreviewPayload) (intent.Result, error) {
	args := m.Called(ctx, payload)
	return args.Get(0).(intent.Result), args.Error(1)
}

func (m *CallbackServiceMock) Subscriber() realtime.Subscriber {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(realtime.Subscriber)
}

func callbackOrNil(v interface{}) *model.Callback {
	if v == nil {
		return nil
	}
	return v.(*model.Callback)
}
