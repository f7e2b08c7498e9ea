package jetstream

import (
	"context"

	"github.com/nats-io/nats.go"
)

// ClientInterface is the NATS surface the rest of the service depends on.
type ClientInterface interface {
	SetupStream(ctx context.Context, cfg *nats.StreamConfig) error
	SetupConsumer(ctx context.Context, streamName string, cfg *nats.ConsumerConfig) error
	SubscribePush(subject, consumer, group, stream string, handler nats.MsgHandler) (*nats.Subscription, error)
	SubscribePull(streamName, subject, consumer string) (*nats.Subscription, error)
	Publish(subject string, data []byte, headers map[string]string) error
	PublishCore(subject string, data []byte) error
	SubscribeCore(subject string, handler nats.MsgHandler) (*nats.Subscription, error)
	IsConnected() bool
	NatsConn() *nats.Conn
	Close()
}
