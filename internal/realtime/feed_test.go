package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-callback-board/internal/apperrors"
	jsmock "gitlab.com/timkado/api/daisi-callback-board/internal/jetstream/mock"
	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
)

func TestFeed_Subject(t *testing.T) {
	f := NewFeed(&jsmock.ClientMock{}, "")

	subject, err := f.Subject("agent-1")
	require.NoError(t, err)
	assert.Equal(t, "v1.callbacks.changed.agent-1", subject)

	for _, bad := range []string{"", "a.b", "a*", "a>", "a b"} {
		_, err := f.Subject(bad)
		assert.ErrorIs(t, err, apperrors.ErrBadRequest, bad)
	}

	custom := NewFeed(&jsmock.ClientMock{}, "board.changes.")
	subject, err = custom.Subject("agent-1")
	require.NoError(t, err)
	assert.Equal(t, "board.changes.agent-1", subject)
}

func TestFeed_Publish(t *testing.T) {
	client := &jsmock.ClientMock{}
	f := NewFeed(client, "")
	at := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)

	client.On("PublishCore", "v1.callbacks.changed.agent-1", mock.MatchedBy(func(data []byte) bool {
		var ev model.CallbackChangeEvent
		return json.Unmarshal(data, &ev) == nil && ev.CallbackID == "cb-1" && ev.Action == model.ChangeRescheduled && ev.At.Equal(at)
	})).Return(nil).Once()

	err := f.Publish(context.Background(), model.CallbackChangeEvent{UserID: "agent-1", CallbackID: "cb-1", Action: model.ChangeRescheduled, At: at})
	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestFeed_PublishError(t *testing.T) {
	client := &jsmock.ClientMock{}
	f := NewFeed(client, "")
	client.On("PublishCore", mock.Anything, mock.Anything).Return(errors.New("nats: connection closed"))

	err := f.Publish(context.Background(), model.CallbackChangeEvent{UserID: "agent-1"})
	assert.ErrorIs(t, err, apperrors.ErrNATS)
}

func TestFeed_SubscribeDeliversEvents(t *testing.T) {
	client := &jsmock.ClientMock{}
	f := NewFeed(client, "")

	var handler nats.MsgHandler
	client.On("SubscribeCore", "v1.callbacks.changed.agent-1", mock.Anything).
		Run(func(args mock.Arguments) { handler = args.Get(1).(nats.MsgHandler) }).
		Return(nil, nil)

	var got []model.CallbackChangeEvent
	unsubscribe, err := f.Subscribe("agent-1", func(ev model.CallbackChangeEvent) { got = append(got, ev) })
	require.NoError(t, err)
	require.NotNil(t, handler)

	data, _ := json.Marshal(model.CallbackChangeEvent{UserID: "agent-1", CallbackID: "cb-9", Action: model.ChangeCreated})
	handler(&nats.Msg{Subject: "v1.callbacks.changed.agent-1", Data: data})
	handler(&nats.Msg{Subject: "v1.callbacks.changed.agent-1", Data: []byte("not json")})

	require.Len(t, got, 2)
	assert.Equal(t, "cb-9", got[0].CallbackID)
	assert.Equal(t, "agent-1", got[1].UserID)

	unsubscribe()
	unsubscribe()
}

func TestFeed_SubscribeError(t *testing.T) {
	client := &jsmock.ClientMock{}
	f := NewFeed(client, "")
	client.On("SubscribeCore", mock.Anything, mock.Anything).Return(nil, errors.New("nats: connection closed"))

	_, err := f.Subscribe("agent-1", func(model.CallbackChangeEvent) {})
	assert.ErrorIs(t, err, apperrors.ErrNATS)
}
