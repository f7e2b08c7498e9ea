package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gitlab.com/timkado/api/daisi-callback-board/internal/ingestion/handler"
	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
)

// MockWrapupService is a mock for the WrapupService interface
type MockWrapupService struct {
	mock.Mock
}

var _ handler.WrapupService = (*MockWrapupService)(nil)

// CreateFromNotes mocks the CreateFromNotes method
func (m *MockWrapupService) CreateFromNotes(ctx context.Context, wrapup model.CallWrapupPayload) (*model.Callback, bool, error) {
	args := m.Called(ctx, wrapup)
	cb, _ := args.Get(0).(*model.Callback)
	return cb, args.Bool(1), args.Error(2)
}
