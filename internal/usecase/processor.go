package usecase

import (
	"context"
	"fmt"

	"gitlab.com/timkado/api/daisi-callback-board/internal/config"
	"gitlab.com/timkado/api/daisi-callback-board/internal/ingestion"
	"gitlab.com/timkado/api/daisi-callback-board/internal/ingestion/handler"
	"gitlab.com/timkado/api/daisi-callback-board/internal/jetstream"
	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
	"gitlab.com/timkado/api/daisi-callback-board/pkg/logger"
	"go.uber.org/zap"
)

// Processor wires the wrap-up consumer to the callback service
type Processor struct {
	service        *CallbackService
	jsClient       jetstream.ClientInterface
	wrapupConsumer ingestion.ConsumerInterface
	eventRouter    ingestion.RouterInterface
	wrapupHandler  handler.WrapupHandlerInterface
}

// NewProcessor creates a processor for one company. Consumer and queue group
// names from config are suffixed with the company ID.
func NewProcessor(service *CallbackService, jsClient jetstream.ClientInterface, cfg *config.Config, companyID string) *Processor {
	router := ingestion.NewRouter()

	wrapupCfg := cfg.NATS.Wrapup
	wrapupCfg.Consumer = wrapupCfg.Consumer + companyID
	wrapupCfg.QueueGroup = wrapupCfg.QueueGroup + companyID
	wrapupConsumer := ingestion.NewWrapupConsumer(jsClient, router, wrapupCfg, companyID, cfg.NATS.DLQSubject)

	return &Processor{
		service:        service,
		jsClient:       jsClient,
		wrapupConsumer: wrapupConsumer,
		eventRouter:    router,
		wrapupHandler:  handler.NewWrapupHandler(service),
	}
}

// GetRouter returns the processor's event router. The DLQ worker re-routes through it.
func (p *Processor) GetRouter() ingestion.RouterInterface {
	return p.eventRouter
}

// Setup registers handlers and sets up the wrap-up consumer
func (p *Processor) Setup() error {
	p.eventRouter.Register(model.V1CallWrapup, p.wrapupHandler.HandleEvent)

	p.eventRouter.RegisterDefault(func(ctx context.Context, eventType model.EventType, metadata *model.MessageMetadata, rawEvent []byte) error {
		logger.FromContext(ctx).Warn("Unhandled event type",
			zap.String("type", string(eventType)),
			zap.String("version", eventType.GetVersion()),
			zap.String("subject", metadata.MessageSubject),
		)
		return nil
	})

	if err := p.wrapupConsumer.Setup(); err != nil {
		return fmt.Errorf("failed to setup wrap-up consumer: %w", err)
	}

	logger.Log.Info("Processor setup complete")
	return nil
}

// Start starts the wrap-up consumer
func (p *Processor) Start() (err error) {
	logger.Log.Info("Starting event processor...")

	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("[panic] Recovered from panic in processor",
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			err = fmt.Errorf("panic starting processor: %v", r)
		}
	}()

	if err := p.wrapupConsumer.Start(); err != nil {
		return fmt.Errorf("failed to start wrap-up consumer: %w", err)
	}

	logger.Log.Info("Wrap-up consumer started")
	return nil
}

// Stop stops the wrap-up consumer
func (p *Processor) Stop() {
	logger.Log.Info("Stopping event processor...")
	p.wrapupConsumer.Stop()
	logger.Log.Info("Event processor stopped")
}
