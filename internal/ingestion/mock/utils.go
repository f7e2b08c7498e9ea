package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
	"gitlab.com/timkado/api/daisi-callback-board/internal/tenant"
	"gitlab.com/timkado/api/daisi-callback-board/pkg/logger"
	"go.uber.org/zap/zaptest"
)

// WithTestContext returns a context carrying a test logger and, when set, the company ID
func WithTestContext(t *testing.T, companyID string) context.Context {
	ctx := logger.WithLogger(context.Background(), zaptest.NewLogger(t))
	if companyID != "" {
		ctx = tenant.WithCompanyID(ctx, companyID)
	}
	return ctx
}

// SetupMessageMetadata creates a MessageMetadata instance for testing
func SetupMessageMetadata(messageID, subject, companyID string) *model.MessageMetadata {
	return &model.MessageMetadata{
		MessageID:        messageID,
		MessageSubject:   subject,
		CompanyID:        companyID,
		StreamSequence:   1,
		ConsumerSequence: 1,
		Stream:           "wrapup_events_stream",
		Consumer:         "callback_board_wrapup_"+companyID,
		NumDelivered:     1,
		NumPending:       0,
	}
}

// CustomAssert provides additional assertions for the mocks
type CustomAssert struct {
	T *testing.T
}

// AssertRouterRegistered checks that all expected routes were registered
func (a *CustomAssert) AssertRouterRegistered(mockRouter *RouterMock, expectedEvents []model.EventType) {
	for _, eventType := range expectedEvents {
		mockRouter.AssertCalled(a.T, "Register", eventType, mock.Anything)
	}
}

// NewAssert creates a new CustomAssert
func NewAssert(t *testing.T) *CustomAssert {
	return &CustomAssert{T: t}
}
