package ingestion

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
	"gitlab.com/timkado/api/daisi-callback-board/internal/tenant"
	"gitlab.com/timkado/api/daisi-callback-board/pkg/logger"
)

// EventHandler processes one decoded-subject event. The raw payload is passed through untouched.
type EventHandler func(ctx context.Context, eventType model.EventType, metadata *model.MessageMetadata, rawEvent []byte) error

// Router dispatches wrap-up and redelivered DLQ events by their base subject.
type Router struct {
	handlers       map[model.EventType]EventHandler
	defaultHandler EventHandler
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{
		handlers: make(map[model.EventType]EventHandler),
	}
}

// Register binds a handler to a base subject such as v1.calls.wrapup.
func (r *Router) Register(eventType model.EventType, handler EventHandler) {
	r.handlers[eventType] = handler
}

// RegisterDefault sets the handler for subjects with no registered handler.
func (r *Router) RegisterDefault(handler EventHandler) {
	r.defaultHandler = handler
}

// routingKeys are the call identifiers worth carrying on every log line of an event.
type routingKeys struct {
	CallActivityID string `json:"call_activity_id"`
	UserID         string `json:"user_id"`
}

// peekRoutingKeys reads the call identifiers without validating the payload.
// Handlers still decode and validate it; a bad payload just yields empty keys here.
func peekRoutingKeys(rawEvent []byte) routingKeys {
	var keys routingKeys
	_ = json.Unmarshal(rawEvent, &keys)
	return keys
}

// Route scopes the context to the event's company and agent, then hands the
// event to the handler registered for its base subject.
func (r *Router) Route(ctx context.Context, metadata *model.MessageMetadata, rawEvent []byte) error {
	keys := peekRoutingKeys(rawEvent)

	fields := []zap.Field{
		zap.String("subject", metadata.MessageSubject),
		zap.String("message_id", metadata.MessageID),
		zap.String("company_id", metadata.CompanyID),
		zap.Uint64("delivery", metadata.NumDelivered),
	}
	if keys.CallActivityID != "" {
		fields = append(fields, zap.String("call_activity_id", keys.CallActivityID))
	}
	if keys.UserID != "" {
		fields = append(fields, zap.String("user_id", keys.UserID))
		ctx = tenant.WithUserID(ctx, keys.UserID)
	}
	if metadata.CompanyID != "" {
		ctx = tenant.WithCompanyID(ctx, metadata.CompanyID)
	}

	log := logger.FromContext(ctx).With(fields...)
	ctx = logger.WithLogger(ctx, log)

	eventType, found := model.MapToBaseEventType(metadata.MessageSubject)
	if !found {
		// eventType stays empty; only the default handler can take it.
		log.Warn("Subject does not map to a known event type")
	}

	log.Debug("Routing event",
		zap.Int("payload_bytes", len(rawEvent)),
		zap.String("version", eventType.GetVersion()),
	)

	if handler, ok := r.handlers[eventType]; ok {
		return handler(ctx, eventType, metadata, rawEvent)
	}
	if r.defaultHandler != nil {
		log.Warn("No handler for event type, using default")
		return r.defaultHandler(ctx, eventType, metadata, rawEvent)
	}

	// Acked and dropped: nothing here can ever handle it.
	log.Error("No handler registered for event type, dropping")
	return nil
}
