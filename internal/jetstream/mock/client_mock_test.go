package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// changeNotifier is a minimal consumer of the client used to exercise the mock.
type changeNotifier struct {
	client *ClientMock
}

func (n *changeNotifier) setup(ctx context.Context) error {
	if err := n.client.SetupStream(ctx, &nats.StreamConfig{Name: "wrapup_events_stream", Subjects: []string{"v1.calls.wrapup.*"}}); err != nil {
		return err
	}
	return n.client.SetupConsumer(ctx, "wrapup_events_stream", &nats.ConsumerConfig{Durable: "callback_board_wrapup_acme"})
}

func (n *changeNotifier) notify(userID string) error {
	return n.client.PublishCore("v1.callbacks.changed."+userID, []byte(`{}`))
}

func TestClientMock(t *testing.T) {
	mockClient := new(ClientMock)
	n := &changeNotifier{client: mockClient}

	mockClient.On("SetupStream", mock.Anything, mock.AnythingOfType("*nats.StreamConfig")).Return(nil)
	mockClient.On("SetupConsumer", mock.Anything, "wrapup_events_stream", mock.AnythingOfType("*nats.ConsumerConfig")).Return(nil)
	mockClient.On("PublishCore", "v1.callbacks.changed.user-1", []byte(`{}`)).Return(nil)
	mockClient.On("SubscribeCore", "v1.callbacks.changed.user-1", mock.Anything).Return(MockSubscription(), nil)
	mockClient.On("IsConnected").Return(true)

	assert.NoError(t, n.setup(context.Background()))
	assert.NoError(t, n.notify("user-1"))

	sub, err := mockClient.SubscribeCore("v1.callbacks.changed.user-1", func(*nats.Msg) {})
	assert.NoError(t, err)
	assert.Nil(t, sub)
	assert.True(t, mockClient.IsConnected())

	mockClient.AssertExpectations(t)
}

func TestClientMockErrors(t *testing.T) {
	mockClient := new(ClientMock)
	n := &changeNotifier{client: mockClient}

	expectedErr := errors.New("stream setup failed")
	mockClient.On("SetupStream", mock.Anything, mock.AnythingOfType("*nats.StreamConfig")).Return(expectedErr)

	err := n.setup(context.Background())
	assert.Equal(t, expectedErr, err)
	mockClient.AssertNotCalled(t, "SetupConsumer", mock.Anything, mock.Anything, mock.Anything)

	mockClient.On("SubscribePull", "dlq_stream", "v1.dlq.acme", "dlq_worker").Return(nil, errors.New("no stream"))
	sub, err := mockClient.SubscribePull("dlq_stream", "v1.dlq.acme", "dlq_worker")
	assert.Error(t, err)
	assert.Nil(t, sub)
}
