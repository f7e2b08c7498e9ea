package ingestion

import (
	"context"

	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
)

// RouterInterface is what the wrap-up consumer and the DLQ worker route through.
type RouterInterface interface {
	Register(eventType model.EventType, handler EventHandler)
	RegisterDefault(handler EventHandler)
	Route(ctx context.Context, metadata *model.MessageMetadata, rawEvent []byte) error
}

// ConsumerInterface is the lifecycle the processor drives for each JetStream consumer.
type ConsumerInterface interface {
	// Setup creates or reconciles the stream and durable consumer.
	Setup() error
	// Start begins the queue subscription. Setup must have succeeded.
	Start() error
	// Stop drains the subscription.
	Stop()
}

var (
	_ RouterInterface   = (*Router)(nil)
	_ ConsumerInterface = (*WrapupConsumer)(nil)
)
