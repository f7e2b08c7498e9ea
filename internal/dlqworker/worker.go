package dlqworker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"gitlab.com/timkado/api/daisi-callback-board/internal/apperrors"
	"gitlab.com/timkado/api/daisi-callback-board/internal/config"
	"gitlab.com/timkado/api/daisi-callback-board/internal/ingestion"
	internal_js "gitlab.com/timkado/api/daisi-callback-board/internal/jetstream"
	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
	"gitlab.com/timkado/api/daisi-callback-board/internal/observer"
	"gitlab.com/timkado/api/daisi-callback-board/pkg/utils"
	"gitlab.com/timkado/api/daisi-callback-board/internal/tenant"
	"gitlab.com/timkado/api/daisi-callback-board/pkg/logger"
)

const (
	defaultMsgChanCap = 100
	fetchBatchSize    = 10
	fetchMaxWait      = 5 * time.Second
	taskTimeout       = time.Minute
	submitNakDelay    = 5 * time.Second
)

// ExhaustedEventSaver parks events that can no longer be retried.
type ExhaustedEventSaver interface {
	SaveExhaustedEvent(ctx context.Context, event model.ExhaustedEvent) error
}

// Outcome is what the worker does with a DLQ message after re-routing it.
type Outcome int

const (
	OutcomeAck     Outcome = iota // re-route succeeded
	OutcomeRetry                  // NAK with backoff
	OutcomeExhaust                // save to the exhausted store, then TERM
)

// Worker re-drives messages parked on the DLQ through the event router.
type Worker struct {
	cfg     *config.Config
	logger  *zap.Logger
	js      internal_js.ClientInterface
	pool    *ants.Pool
	router  ingestion.RouterInterface
	store   ExhaustedEventSaver
	durable string
	subject string
	msgCh   chan *nats.Msg
	stopWg  sync.WaitGroup
	cancel  context.CancelFunc
}

func durableName(dlqSubject string) string {
	return fmt.Sprintf("%s_worker_consumer", strings.ReplaceAll(dlqSubject, ".", "_"))
}

// NewWorker creates the worker pool and the DLQ stream and pull consumer.
func NewWorker(cfg *config.Config, log *zap.Logger, jsClient internal_js.ClientInterface, router ingestion.RouterInterface, store ExhaustedEventSaver) (*Worker, error) {
	pool, err := ants.NewPool(cfg.NATS.DLQWorkers,
		ants.WithLogger(newAntsLoggerAdapter(log.Named("ants_pool"))),
		ants.WithPanicHandler(func(err interface{}) {
			log.Error("Worker panic caught", zap.Any("error", err), zap.Stack("stack"))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ants pool: %w", err)
	}

	setupCtx := context.Background()
	dlqStreamName := cfg.NATS.DLQStream
	dlqSubject := cfg.NATS.DLQSubject + ".>"
	durable := durableName(cfg.NATS.DLQSubject)

	dlqStreamCfg := &nats.StreamConfig{
		Name:      dlqStreamName,
		Subjects:  []string{dlqSubject},
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    time.Duration(cfg.NATS.DLQMaxAgeDays) * 24 * time.Hour,
	}
	if err := jsClient.SetupStream(setupCtx, dlqStreamCfg); err != nil {
		pool.Release()
		return nil, fmt.Errorf("failed to setup DLQ stream '%s': %w", dlqStreamName, err)
	}
	log.Info("DLQ Stream setup complete", zap.String("stream", dlqStreamName))

	dlqConsumerCfg := &nats.ConsumerConfig{
		Durable:       durable,
		FilterSubject: dlqSubject,
		AckPolicy:     nats.AckExplicitPolicy,
		MaxDeliver:    cfg.NATS.DLQMaxDeliver,
		AckWait:       cfg.NATS.DLQAckWait,
		MaxAckPending: cfg.NATS.DLQMaxAckPending,
		DeliverPolicy: nats.DeliverAllPolicy,
		ReplayPolicy:  nats.ReplayInstantPolicy,
	}
	if err := jsClient.SetupConsumer(setupCtx, dlqStreamName, dlqConsumerCfg); err != nil {
		pool.Release()
		return nil, fmt.Errorf("failed to setup DLQ consumer '%s' for stream '%s': %w", durable, dlqStreamName, err)
	}
	log.Info("DLQ Consumer setup complete", zap.String("consumer", durable))

	worker := &Worker{
		cfg:     cfg,
		logger:  log.Named("dlq_worker"),
		js:      jsClient,
		pool:    pool,
		router:  router,
		store:   store,
		durable: durable,
		subject: dlqSubject,
		msgCh:   make(chan *nats.Msg, defaultMsgChanCap),
	}

	worker.logger.Info("DLQ Worker initialized", zap.Int("pool_size", cfg.NATS.DLQWorkers))
	return worker, nil
}

// Start runs the fetcher and dispatcher and blocks until ctx is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) error {
	derivedCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.logger.Info("Attempting DLQ pull subscription",
		zap.String("stream", w.cfg.NATS.DLQStream),
		zap.String("subject", w.subject),
		zap.String("durable_name", w.durable),
	)

	sub, err := w.js.SubscribePull(w.cfg.NATS.DLQStream, w.subject, w.durable)
	if err != nil {
		w.logger.Error("Failed to create DLQ pull subscription", zap.Error(err))
		cancel()
		return fmt.Errorf("failed to create DLQ pull subscription: %w", err)
	}

	w.stopWg.Add(2)
	go w.fetchMessages(derivedCtx, sub)
	go w.dispatchMessages(derivedCtx)

	w.logger.Info("DLQ worker started successfully")
	<-derivedCtx.Done()
	w.logger.Info("DLQ worker context cancelled, initiating shutdown...")
	return nil
}

// Stop cancels the loops, waits for them and releases the pool.
func (w *Worker) Stop() {
	w.logger.Info("Stopping DLQ worker...")
	if w.cancel != nil {
		w.cancel()
	}
	w.stopWg.Wait()
	w.pool.Release()
	w.logger.Info("DLQ worker stopped")
}

func (w *Worker) fetchMessages(ctx context.Context, sub *nats.Subscription) {
	defer w.stopWg.Done()

	errBackoff := backoff.NewExponentialBackOff()
	errBackoff.InitialInterval = time.Second
	errBackoff.MaxInterval = 30 * time.Second
	errBackoff.MaxElapsedTime = 0

	for {
		if ctx.Err() != nil {
			return
		}

		observer.IncDlqFetchRequest()
		msgs, err := sub.Fetch(fetchBatchSize, nats.MaxWait(fetchMaxWait))
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, nats.ErrTimeout) || errors.Is(err, nats.ErrConnectionClosed) {
				continue
			}
			observer.IncDlqFetchError()
			wait := errBackoff.NextBackOff()
			w.logger.Error("Fetcher loop error retrieving messages", zap.Error(err), zap.Duration("retry_in", wait))
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}
		errBackoff.Reset()

		for _, msg := range msgs {
			select {
			case w.msgCh <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (w *Worker) dispatchMessages(ctx context.Context) {
	defer w.stopWg.Done()

	for {
		observer.SetDlqWorkersActive(w.pool.Running())

		select {
		case <-ctx.Done():
			return
		case msg := <-w.msgCh:
			companyID := companyOf(msg.Data)
			err := w.pool.Submit(func() {
				taskCtx, taskCancel := context.WithTimeout(context.Background(), taskTimeout)
				defer taskCancel()
				defer utils.RecoverWithLog(taskCtx, "dlq task")
				w.handleWithRetry(taskCtx, msg)
			})
			if err != nil {
				w.logger.Error("Failed to submit task to ants pool", zap.Error(err))
				if nakErr := msg.NakWithDelay(submitNakDelay); nakErr != nil {
					w.logger.Error("Failed to NAK message after pool submission error", zap.Error(nakErr))
					observer.IncDlqAckFailure(companyID)
				}
				continue
			}
			observer.IncDlqTasksSubmitted(companyID)
		}
	}
}

func companyOf(data []byte) string {
	var p struct {
		Company string `json:"company"`
	}
	_ = json.Unmarshal(data, &p)
	return p.Company
}

// decide picks the fate of a DLQ message. Fatal errors are parked straight
// away since re-routing cannot fix a malformed event.
func decide(routeErr error, numDelivered uint64, maxDeliver int) Outcome {
	switch {
	case routeErr == nil:
		return OutcomeAck
	case !apperrors.IsRetryable(routeErr):
		return OutcomeExhaust
	case maxDeliver > 0 && numDelivered >= uint64(maxDeliver):
		return OutcomeExhaust
	default:
		return OutcomeRetry
	}
}

func exhaustedEventFrom(payload model.DLQPayload, raw []byte, routeErr error) model.ExhaustedEvent {
	return model.ExhaustedEvent{
		CompanyID:       payload.Company,
		SourceSubject:   payload.SourceSubject,
		LastError:       routeErr.Error(),
		RetryCount:      int(payload.RetryCount),
		EventTimestamp:  payload.Timestamp,
		DLQPayload:      datatypes.JSON(raw),
		OriginalPayload: datatypes.JSON(payload.OriginalPayload),
	}
}

func (w *Worker) handleWithRetry(ctx context.Context, msg *nats.Msg) {
	startTime := time.Now()
	var companyID string
	defer func() {
		observer.ObserveDlqProcessingDuration(companyID, time.Since(startTime))
	}()

	meta, err := msg.Metadata()
	if err != nil {
		w.logger.Error("Failed to get message metadata", zap.Error(err))
		if termErr := msg.Term(); termErr != nil {
			w.logger.Error("Failed to terminate message after metadata error", zap.Error(termErr))
		}
		observer.IncDlqAckFailure(companyID)
		return
	}

	var payload model.DLQPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		w.logger.Error("Failed to unmarshal DLQ payload",
			zap.Error(err),
			zap.Uint64("sequence", meta.Sequence.Stream),
			zap.String("subject", msg.Subject),
		)
		if termErr := msg.Term(); termErr != nil {
			w.logger.Error("Failed to terminate message after unmarshal error", zap.Error(termErr))
		}
		observer.IncDlqAckFailure(companyID)
		return
	}
	companyID = payload.Company

	log := w.logger.With(
		zap.String("source_subject", payload.SourceSubject),
		zap.String("dlq_company", payload.Company),
		zap.Uint64("num_delivered", meta.NumDelivered),
	)
	log.Info("Processing DLQ message",
		zap.Uint64("stream_sequence", meta.Sequence.Stream),
		zap.Uint64("payload_retry_count", payload.RetryCount),
	)

	routerMetadata := &model.MessageMetadata{
		MessageSubject:   payload.SourceSubject,
		CompanyID:        payload.Company,
		StreamSequence:   meta.Sequence.Stream,
		ConsumerSequence: meta.Sequence.Consumer,
		Timestamp:        meta.Timestamp,
		NumDelivered:     meta.NumDelivered,
		Stream:           meta.Stream,
		Consumer:         meta.Consumer,
	}
	handlerCtx := tenant.WithCompanyID(ctx, payload.Company)
	handlerCtx = logger.WithLogger(handlerCtx, log)

	routeErr := w.router.Route(handlerCtx, routerMetadata, payload.OriginalPayload)

	switch decide(routeErr, meta.NumDelivered, w.cfg.NATS.DLQMaxDeliver) {
	case OutcomeAck:
		log.Info("Successfully processed event from DLQ")
		if ackErr := msg.Ack(); ackErr != nil {
			log.Error("Failed to ACK successfully processed message", zap.Error(ackErr))
			observer.IncDlqAckFailure(companyID)
			return
		}
		observer.IncDlqAckSuccess(companyID)

	case OutcomeRetry:
		delay := calculateBackoffDelay(int(meta.NumDelivered), w.cfg.NATS.DLQBaseDelayMinutes, w.cfg.NATS.DLQMaxDelayMinutes)
		log.Warn("Retrying DLQ message with backoff", zap.Error(routeErr), zap.Duration("delay", delay))
		if nakErr := msg.NakWithDelay(delay); nakErr != nil {
			log.Error("Failed to NAK message with delay", zap.Error(nakErr))
			observer.IncDlqAckFailure(companyID)
			return
		}
		observer.IncDlqTaskRetry(companyID)

	case OutcomeExhaust:
		log.Warn("DLQ message exhausted, parking for manual review", zap.Error(routeErr))
		if saveErr := w.store.SaveExhaustedEvent(ctx, exhaustedEventFrom(payload, msg.Data, routeErr)); saveErr != nil {
			log.Error("Failed to save exhausted event, terminating message anyway", zap.Error(saveErr))
			observer.IncDlqAckFailure(companyID)
		}
		if termErr := msg.Term(); termErr != nil {
			log.Error("Failed to terminate exhausted message", zap.Error(termErr))
		}
		observer.IncDlqTasksDropped(companyID)
	}
}

// calculateBackoffDelay doubles the base delay per attempt, capped at max.
func calculateBackoffDelay(retryCount int, baseDelayMinutes, maxDelayMinutes int) time.Duration {
	baseDelay := time.Duration(baseDelayMinutes) * time.Minute
	maxDelay := time.Duration(maxDelayMinutes) * time.Minute

	if retryCount <= 0 {
		return baseDelay
	}
	if retryCount > 30 {
		return maxDelay
	}

	delay := baseDelay * time.Duration(1<<uint(retryCount-1))
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

type antsLoggerAdapter struct {
	logger *zap.Logger
}

func newAntsLoggerAdapter(logger *zap.Logger) *antsLoggerAdapter {
	return &antsLoggerAdapter{logger: logger}
}

func (a *antsLoggerAdapter) Printf(format string, args ...interface{}) {
	a.logger.Info(fmt.Sprintf(format, args...))
}
