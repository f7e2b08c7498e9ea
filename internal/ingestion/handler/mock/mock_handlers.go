package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gitlab.com/timkado/api/daisi-callback-board/internal/ingestion/handler"
	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
)

// MockWrapupHandler is a mock for the WrapupHandlerInterface
type MockWrapupHandler struct {
	mock.Mock
}

var _ handler.WrapupHandlerInterface = (*MockWrapupHandler)(nil)

// HandleEvent mocks the HandleEvent method
func (m *MockWrapupHandler) HandleEvent(ctx context.Context, eventType model.EventType, metadata *model.MessageMetadata, rawEvent []byte) error {
	args := m.Called(ctx, eventType, metadata, rawEvent)
	return args.Error(0)
}
