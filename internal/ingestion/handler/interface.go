package handler

import (
	"context"

	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
)

// EventHandlerInterface defines the common interface for event handlers
type EventHandlerInterface interface {
	// HandleEvent processes an event
	HandleEvent(ctx context.Context, eventType model.EventType, metadata *model.MessageMetadata, rawEvent []byte) error
}

// WrapupHandlerInterface defines the interface for call wrap-up handlers
type WrapupHandlerInterface interface {
	EventHandlerInterface
}

var _ WrapupHandlerInterface = (*WrapupHandler)(nil)
