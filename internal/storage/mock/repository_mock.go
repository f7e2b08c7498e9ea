package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
)

// --- CallbackRepo Mock ---

// CallbackRepoMock mocks the CallbackRepo interface
type CallbackRepoMock struct {
	mock.Mock
}

func (m *CallbackRepoMock) ListPending(ctx context.Context, userID string) ([]model.Callback, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Callback), args.Error(1)
}

func (m *CallbackRepoMock) FindByID(ctx context.Context, userID, id string) (*model.Callback, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Callback), args.Error(1)
}

func (m *CallbackRepoMock) FindByCallActivityID(ctx context.Context, userID, callActivityID string) (*model.Callback, error) {
	args := m.Called(ctx, userID, callActivityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Callback), args.Error(1)
}

// Create accepts either a *model.Callback or a func(context.Context, model.Callback) *model.Callback
// as its first return value, the latter to echo the stored row back.
func (m *CallbackRepoMock) Create(ctx context.Context, callback model.Callback) (*model.Callback, error) {
	args := m.Called(ctx, callback)
	switch ret := args.Get(0).(type) {
	case nil:
		return nil, args.Error(1)
	case func(context.Context, model.Callback) *model.Callback:
		return ret(ctx, callback), args.Error(1)
	default:
		return args.Get(0).(*model.Callback), args.Error(1)
	}
}

func (m *CallbackRepoMock) Update(ctx context.Context, userID, id string, fields map[string]interface{}) (*model.Callback, error) {
	args := m.Called(ctx, userID, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Callback), args.Error(1)
}

func (m *CallbackRepoMock) Delete(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *CallbackRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- ExhaustedEventRepo Mock ---

// ExhaustedEventRepoMock mocks the ExhaustedEventRepo interface
type ExhaustedEventRepoMock struct {
	mock.Mock
}

func (m *ExhaustedEventRepoMock) Save(ctx context.Context, event model.ExhaustedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *ExhaustedEventRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
