package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-callback-board/internal/apperrors"
	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
	"gitlab.com/timkado/api/daisi-callback-board/internal/tenant"
	"gitlab.com/timkado/api/daisi-callback-board/pkg/logger"
)

// WrapupService turns wrap-up notes into callbacks
type WrapupService interface {
	CreateFromNotes(ctx context.Context, wrapup model.CallWrapupPayload) (*model.Callback, bool, error)
}

// WrapupHandler processes call wrap-up events
type WrapupHandler struct {
	service WrapupService
}

// NewWrapupHandler creates a new wrap-up event handler
func NewWrapupHandler(service WrapupService) *WrapupHandler {
	return &WrapupHandler{
		service: service,
	}
}

// HandleEvent decodes a wrap-up and hands it to the service. Malformed
// payloads are fatal so they go straight to the DLQ.
func (h *WrapupHandler) HandleEvent(ctx context.Context, eventType model.EventType, metadata *model.MessageMetadata, rawEvent []byte) error {
	ctx = tenant.WithRequestID(ctx, uuid.NewString())
	log := logger.FromContext(ctx)

	if eventType != model.V1CallWrapup {
		log.Error("Unsupported wrap-up event type", zap.String("eventType", string(eventType)))
		return apperrors.NewFatal(fmt.Errorf("unsupported event type: %s", eventType), "unsupported wrap-up event type")
	}

	var wrapup model.CallWrapupPayload
	if err := json.Unmarshal(rawEvent, &wrapup); err != nil {
		log.Error("Failed to unmarshal wrap-up payload", zap.Error(err))
		return apperrors.NewFatal(err, "failed to unmarshal wrap-up payload")
	}

	if wrapup.CompanyID == "" && metadata != nil {
		wrapup.CompanyID = metadata.CompanyID
	}
	if wrapup.UserID != "" {
		ctx = tenant.WithUserID(ctx, wrapup.UserID)
	}

	log.Info("Processing call wrap-up",
		zap.String("call_activity_id", wrapup.CallActivityID),
		zap.String("user_id", wrapup.UserID),
		zap.Int("notes_length", len(wrapup.Notes)),
	)

	cb, created, err := h.service.CreateFromNotes(ctx, wrapup)
	if err != nil {
		return err
	}
	switch {
	case created:
		log.Info("Wrap-up produced a callback", zap.String("callback_id", cb.ID))
	case cb != nil:
		log.Info("Wrap-up already handled", zap.String("callback_id", cb.ID))
	default:
		log.Debug("Wrap-up did not request a callback")
	}
	return nil
}
