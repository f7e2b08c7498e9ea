package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gitlab.com/timkado/api/daisi-callback-board/internal/apperrors"
	"gitlab.com/timkado/api/daisi-callback-board/internal/config"
	handlermock "gitlab.com/timkado/api/daisi-callback-board/internal/ingestion/handler/mock"
	ingestionmock "gitlab.com/timkado/api/daisi-callback-board/internal/ingestion/mock"
	jsmock "gitlab.com/timkado/api/daisi-callback-board/internal/jetstream/mock"
	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
	storagemock "gitlab.com/timkado/api/daisi-callback-board/internal/storage/mock"
	"gitlab.com/timkado/api/daisi-callback-board/pkg/logger"
	"go.uber.org/zap/zaptest"
)

func createDummyConfig() *config.Config {
	var cfg config.Config
	cfg.NATS.Wrapup = config.ConsumerNatsConfig{
		Stream:      "wrapup_events_stream",
		Consumer:    "callback_board_wrapup_",
		QueueGroup:  "callback_board_wrapup_group_",
		SubjectList: []string{string(model.V1CallWrapup)},
		MaxDeliver:  5,
	}
	cfg.NATS.DLQSubject = "v1.dlq"
	return &cfg
}

func useTestLogger(t *testing.T) {
	originalLogger := logger.Log
	logger.Log = zaptest.NewLogger(t).Named(t.Name())
	t.Cleanup(func() { logger.Log = originalLogger })
}

func TestNewProcessor(t *testing.T) {
	useTestLogger(t)
	service := &CallbackService{}
	mockJSClient := new(jsmock.ClientMock)

	processor := NewProcessor(service, mockJSClient, createDummyConfig(), "acme")

	assert.Equal(t, service, processor.service)
	assert.Equal(t, mockJSClient, processor.jsClient)
	assert.NotNil(t, processor.wrapupConsumer)
	assert.NotNil(t, processor.eventRouter)
	assert.NotNil(t, processor.wrapupHandler)
	assert.Equal(t, processor.eventRouter, processor.GetRouter())
}

func TestProcessor_Setup(t *testing.T) {
	useTestLogger(t)
	mockJSClient := new(jsmock.ClientMock)
	mockRouter := new(ingestionmock.RouterMock)
	cfg := createDummyConfig()

	processor := NewProcessor(&CallbackService{}, mockJSClient, cfg, "acme")
	processor.eventRouter = mockRouter

	mockRouter.On("Register", model.V1CallWrapup, mock.Anything).Return()
	mockRouter.On("RegisterDefault", mock.Anything).Return()
	mockJSClient.On("SetupStream", mock.Anything, mock.AnythingOfType("*nats.StreamConfig")).Return(nil).Once()
	mockJSClient.On("SetupConsumer", mock.Anything, cfg.NATS.Wrapup.Stream, mock.AnythingOfType("*nats.ConsumerConfig")).Return(nil).Once()

	err := processor.Setup()

	assert.NoError(t, err)
	ingestionmock.NewAssert(t).AssertRouterRegistered(mockRouter, []model.EventType{model.V1CallWrapup})
	mockRouter.AssertExpectations(t)
	mockJSClient.AssertExpectations(t)
}

func TestProcessor_Setup_ConsumerError(t *testing.T) {
	useTestLogger(t)
	mockConsumer := new(ingestionmock.ConsumerMock)
	processor := NewProcessor(&CallbackService{}, new(jsmock.ClientMock), createDummyConfig(), "acme")
	processor.wrapupConsumer = mockConsumer

	mockConsumer.On("Setup").Return(errors.New("stream setup failed"))

	err := processor.Setup()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to setup wrap-up consumer")
	mockConsumer.AssertExpectations(t)
}

func TestProcessor_StartStop(t *testing.T) {
	useTestLogger(t)
	mockConsumer := new(ingestionmock.ConsumerMock)
	processor := NewProcessor(&CallbackService{}, new(jsmock.ClientMock), createDummyConfig(), "acme")
	processor.wrapupConsumer = mockConsumer

	mockConsumer.On("Start").Return(nil).Once()
	mockConsumer.On("Stop").Return().Once()

	assert.NoError(t, processor.Start())
	processor.Stop()
	mockConsumer.AssertExpectations(t)
}

func TestProcessor_Start_Error(t *testing.T) {
	useTestLogger(t)
	mockConsumer := new(ingestionmock.ConsumerMock)
	processor := NewProcessor(&CallbackService{}, new(jsmock.ClientMock), createDummyConfig(), "acme")
	processor.wrapupConsumer = mockConsumer

	mockConsumer.On("Start").Return(errors.New("subscribe failed"))

	err := processor.Start()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start wrap-up consumer")
}

func TestProcessor_Start_Panic(t *testing.T) {
	useTestLogger(t)
	mockConsumer := new(ingestionmock.ConsumerMock)
	processor := NewProcessor(&CallbackService{}, new(jsmock.ClientMock), createDummyConfig(), "acme")
	processor.wrapupConsumer = mockConsumer

	mockConsumer.On("Start").Run(func(mock.Arguments) { panic("boom") })

	err := processor.Start()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestProcessor_RoutesWrapupToHandler(t *testing.T) {
	useTestLogger(t)
	mockJSClient := new(jsmock.ClientMock)
	mockJSClient.On("SetupStream", mock.Anything, mock.Anything).Return(nil)
	mockJSClient.On("SetupConsumer", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	mockHandler := new(handlermock.MockWrapupHandler)
	processor := NewProcessor(&CallbackService{}, mockJSClient, createDummyConfig(), "acme")
	processor.wrapupHandler = mockHandler
	require.NoError(t, processor.Setup())

	ctx := context.Background()
	metadata := &model.MessageMetadata{MessageSubject: model.V1CallWrapup.Subject("acme"), CompanyID: "acme"}
	raw := []byte(`{}`)
	mockHandler.On("HandleEvent", mock.Anything, model.V1CallWrapup, metadata, raw).Return(nil).Once()

	assert.NoError(t, processor.GetRouter().Route(ctx, metadata, raw))

	unknown := &model.MessageMetadata{MessageSubject: "v9.unknown.acme", CompanyID: "acme"}
	assert.NoError(t, processor.GetRouter().Route(ctx, unknown, raw), "default handler swallows unknown events")
	mockHandler.AssertExpectations(t)
}

func TestProcessor_EndToEndCreatesCallback(t *testing.T) {
	useTestLogger(t)
	mockJSClient := new(jsmock.ClientMock)
	mockJSClient.On("SetupStream", mock.Anything, mock.Anything).Return(nil)
	mockJSClient.On("SetupConsumer", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	callbackRepo := new(storagemock.CallbackRepoMock)
	publisher := &fakePublisher{}
	service := NewCallbackService(callbackRepo, new(storagemock.ExhaustedEventRepoMock), publisher, nil, nil).
		WithClock(fixedClock(testNow))

	processor := NewProcessor(service, mockJSClient, createDummyConfig(), "acme")
	require.NoError(t, processor.Setup())

	wrapup := model.NewCallWrapupPayload(&model.CallWrapupPayload{Notes: "Urgent, call back tomorrow"})
	raw, err := json.Marshal(wrapup)
	require.NoError(t, err)

	callbackRepo.On("FindByCallActivityID", mock.Anything, wrapup.UserID, wrapup.CallActivityID).Return(nil, apperrors.ErrNotFound).Once()
	callbackRepo.On("Create", mock.Anything, mock.MatchedBy(func(cb model.Callback) bool {
		return cb.UserID == wrapup.UserID && cb.Priority == model.PriorityUrgent && *cb.CallActivityID == wrapup.CallActivityID
	})).Return(model.NewCallback(&model.Callback{ID: "0b7c6f7e-6a8e-4f43-9d59-6f3f0f0d1a11", UserID: wrapup.UserID}), nil).Once()

	metadata := &model.MessageMetadata{MessageSubject: model.V1CallWrapup.Subject("acme"), CompanyID: "acme"}
	err = processor.GetRouter().Route(context.Background(), metadata, raw)

	assert.NoError(t, err)
	callbackRepo.AssertExpectations(t)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, model.ChangeCreated, publisher.events[0].Action)
}
