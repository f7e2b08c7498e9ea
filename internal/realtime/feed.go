package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-callback-board/internal/apperrors"
	"gitlab.com/timkado/api/daisi-callback-board/internal/jetstream"
	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
	"gitlab.com/timkado/api/daisi-callback-board/internal/observer"
	"gitlab.com/timkado/api/daisi-callback-board/pkg/logger"
	"gitlab.com/timkado/api/daisi-callback-board/pkg/utils"
)

// Publisher announces that a user's callbacks changed.
type Publisher interface {
	Publish(ctx context.Context, event model.CallbackChangeEvent) error
}

// Subscriber delivers change notifications for one user until the returned
// function is called.
type Subscriber interface {
	Subscribe(userID string, onChange func(model.CallbackChangeEvent)) (unsubscribe func(), err error)
}

// Feed is the NATS-backed change feed. Notifications go over core NATS on
// <prefix>.<user_id>; they are hints to refetch, so at-most-once delivery is enough.
type Feed struct {
	client jetstream.ClientInterface
	prefix string
}

// NewFeed creates a change feed publishing under prefix. An empty prefix uses
// the default v1.callbacks.changed subject.
func NewFeed(client jetstream.ClientInterface, prefix string) *Feed {
	if prefix == "" {
		prefix = string(model.V1CallbacksChanged)
	}
	return &Feed{client: client, prefix: strings.TrimSuffix(prefix, ".")}
}

// Subject returns the per-user subject. User IDs that would break NATS subject
// tokenization are rejected.
func (f *Feed) Subject(userID string) (string, error) {
	if userID == "" || strings.ContainsAny(userID, ".*> \t\r\n") {
		return "", fmt.Errorf("%w: user_id %q is not a valid subject token", apperrors.ErrBadRequest, userID)
	}
	return f.prefix + "." + userID, nil
}

// Publish sends a change notification for event.UserID.
func (f *Feed) Publish(ctx context.Context, event model.CallbackChangeEvent) error {
	subject, err := f.Subject(event.UserID)
	if err != nil {
		return err
	}
	if event.At.IsZero() {
		event.At = utils.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	err = f.client.PublishCore(subject, data)
	observer.IncChangeNotification("out", err)
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to publish callback change",
			zap.String("subject", subject),
			zap.String("callback_id", event.CallbackID),
			zap.Error(err))
		return fmt.Errorf("%w: publish change: %w", apperrors.ErrNATS, err)
	}
	return nil
}

// Subscribe registers onChange for the user's subject. Malformed notifications
// are still delivered as an empty event for that user, since any message means
// "refetch".
func (f *Feed) Subscribe(userID string, onChange func(model.CallbackChangeEvent)) (func(), error) {
	subject, err := f.Subject(userID)
	if err != nil {
		return nil, err
	}

	sub, err := f.client.SubscribeCore(subject, func(msg *nats.Msg) {
		var event model.CallbackChangeEvent
		decodeErr := json.Unmarshal(msg.Data, &event)
		observer.IncChangeNotification("in", decodeErr)
		if decodeErr != nil {
			logger.Log.Debug("Undecodable change notification", zap.String("subject", msg.Subject), zap.Error(decodeErr))
			event = model.CallbackChangeEvent{UserID: userID}
		}
		onChange(event)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: subscribe %s: %w", apperrors.ErrNATS, subject, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if sub == nil {
				return
			}
			if err := sub.Unsubscribe(); err != nil && err != nats.ErrConnectionClosed && err != nats.ErrBadSubscription {
				logger.Log.Warn("Failed to unsubscribe change feed", zap.String("subject", subject), zap.Error(err))
			}
		})
	}, nil
}
