package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-callback-board/internal/config"
	"gitlab.com/timkado/api/daisi-callback-board/internal/jetstream"
	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
	"gitlab.com/timkado/api/daisi-callback-board/internal/observer"
	"gitlab.com/timkado/api/daisi-callback-board/pkg/logger"
	"gitlab.com/timkado/api/daisi-callback-board/pkg/utils"
)

// IndividualTaskDetail holds info for a single wrap-up within a batch.
type IndividualTaskDetail struct {
	BaseSubject string
	CompanyID   string
	UserID      string
	// Redeliver republishes the previous wrap-up for this user to exercise idempotency.
	Redeliver bool
}

// BatchTask represents a batch of messages to be processed by a worker.
type BatchTask struct {
	Tasks      []IndividualTaskDetail
	NatsClient jetstream.ClientInterface
	LastByUser *lastWrapups
}

// lastWrapups remembers the most recent wrap-up published per user.
type lastWrapups struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (l *lastWrapups) get(userID string) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.data[userID]
	return b, ok
}

func (l *lastWrapups) put(userID string, b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data[userID] = b
}

const defaultBatchSize = 50

func main() {
	// --- Configuration & Flag Parsing ---
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	natsURL := flag.String("url", cfg.NATS.URL, "NATS server URL")
	subjectsStr := flag.String("subjects", string(model.V1CallWrapup), "Comma-separated list of base NATS subjects")
	rate := flag.Int("rate", 100, "Target messages per second (total)")
	duration := flag.Duration("duration", 1*time.Minute, "Load test duration")
	concurrency := flag.Int("concurrency", 10, "Number of concurrent workers")
	companyIDsStr := flag.String("company_ids", cfg.Company.ID, "Comma-separated list of company IDs")
	batchSize := flag.Int("batch-size", defaultBatchSize, "Number of messages to generate/publish per worker batch")
	agents := flag.Int("agents", 20, "Number of distinct agent user IDs per company")
	redeliverRatio := flag.Float64("redeliver-ratio", 0.05, "Fraction of wrap-ups republished as duplicates")
	metricsPort := flag.Int("metrics-port", 9091, "Port for Prometheus metrics endpoint")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	// --- Usage Function ---
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "NATS Load Generator (Batch Mode)\\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\\n\\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generates call wrap-up load for daisi-callback-board by publishing to NATS.\\n\\n")
		fmt.Fprintf(os.Stderr, "Options:\\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *batchSize <= 0 {
		*batchSize = defaultBatchSize
		fmt.Printf("Invalid batch size, using default: %d\n", defaultBatchSize)
	}
	if *agents <= 0 {
		*agents = 1
	}

	// --- Initialization ---
	if err := logger.Initialize(*logLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	observer.InitMetrics(true)
	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel() // Ensure context is cancelled eventually

	// Start metrics server with graceful shutdown
	metricsServer := startMetricsServer(ctx, *metricsPort)
	var metricsWg sync.WaitGroup
	metricsWg.Add(1)
	go func() {
		defer metricsWg.Done()
		<-ctx.Done() // Wait for cancellation signal
		logger.Log.Info("Shutting down metrics server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Metrics server shutdown error", zap.Error(err))
		} else {
			logger.Log.Info("Metrics server stopped gracefully.")
		}
	}()

	logger.Log.Info("Starting NATS Load Generator (Batch Mode)",
		zap.String("nats_url", *natsURL),
		zap.String("subjects", *subjectsStr),
		zap.Int("rate_per_sec", *rate),
		zap.Duration("duration", *duration),
		zap.Int("concurrency", *concurrency),
		zap.Int("batch_size", *batchSize),
		zap.String("company_ids", *companyIDsStr),
		zap.Int("metrics_port", *metricsPort),
		zap.String("log_level", *logLevel),
	)

	natsClient, err := jetstream.NewClient(*natsURL, "daisi-callback-board-loadgen")
	if err != nil {
		logger.Log.Fatal("Failed to connect to NATS", zap.String("url", *natsURL), zap.Error(err))
	}
	defer natsClient.Close()
	logger.Log.Info("Connected to NATS", zap.String("url", *natsURL))

	baseSubjects := strings.Split(*subjectsStr, ",")
	companyIDs := strings.Split(*companyIDsStr, ",")
	if len(baseSubjects) == 0 || baseSubjects[0] == "" {
		logger.Log.Fatal("No base subjects provided")
	}
	if len(companyIDs) == 0 || companyIDs[0] == "" {
		logger.Log.Fatal("No company IDs provided")
	}

	gofakeit.Seed(time.Now().UnixNano())

	// Fixed agent pool so callbacks pile up on a few boards
	userIDs := make([]string, *agents)
	for i := range userIDs {
		userIDs[i] = gofakeit.UUID()
	}
	last := &lastWrapups{data: make(map[string][]byte)}

	// --- Worker Pool Setup ---
	var wg sync.WaitGroup
	pool, err := ants.NewPoolWithFunc(*concurrency, func(data interface{}) {
		batchWorkerFunc(data, &wg) // Use the new batch worker function
	})
	if err != nil {
		logger.Log.Fatal("Failed to create worker pool", zap.Error(err))
	}
	defer pool.Release()

	logger.Log.Info("Worker pool initialized", zap.Int("size", *concurrency))

	// --- Rate Limiting and Execution ---
	// Use the same context for the load loop
	// ctx, cancel := context.WithCancel(context.Background()) // Already defined above
	// defer cancel() // Already deferred above

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// WaitGroup for the load generation loop itself
	var loopWg sync.WaitGroup
	loopWg.Add(1)

	// Start the load generation loop
	go runBatchLoadLoop(ctx, loadParams{
		rate:           *rate,
		duration:       *duration,
		batchSize:      *batchSize,
		subjects:       baseSubjects,
		companies:      companyIDs,
		userIDs:        userIDs,
		redeliverRatio: *redeliverRatio,
	}, natsClient, last, pool, &wg, &loopWg)

	// Wait for stop signal or context cancellation (implicitly handled by timer in loop)
	select {
	case sig := <-sigChan:
		logger.Log.Info("Received termination signal, shutting down...", zap.String("signal", sig.String()))
		cancel() // Signal cancellation to loop and metrics server
	case <-ctx.Done():
		// This case might be hit if the duration finishes *before* a signal
		logger.Log.Info("Load generation duration finished or context cancelled externally.")
		// cancel() // Ensure cancellation is called if not already
	}

	// --- Graceful Shutdown ---
	logger.Log.Info("Waiting for load generation loop to finish submitting tasks...")
	loopWg.Wait() // Wait for runBatchLoadLoop goroutine to exit
	logger.Log.Info("Load generation loop finished.")

	logger.Log.Info("Waiting for active publishing worker tasks to complete...")
	wg.Wait() // Wait for all dispatched worker tasks to complete
	logger.Log.Info("All worker tasks finished.")

	// pool.Release() is handled by defer now

	logger.Log.Info("Closing NATS connection.") // NATS Close is handled by defer
	// natsClient.Close() // Handled by defer

	// Wait for metrics server to shut down (triggered by cancel())
	logger.Log.Info("Waiting for metrics server to stop...")
	metricsWg.Wait()

	logger.Log.Info("Load generator shutdown complete.")
}

func startMetricsServer(ctx context.Context, port int) *http.Server {
	logger.Log.Info("Starting Prometheus metrics server", zap.Int("port", port))
	mux := http.NewServeMux() // Use a dedicated mux
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	// Start server in a goroutine so it doesn't block
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("Failed to start Prometheus metrics server", zap.Error(err))
			// Consider cancelling the main context here if metrics server fails to start
			// cancel() // If you passed cancel func here
		}
	}()

	return server // Return the server instance for graceful shutdown
}

type loadParams struct {
	rate           int
	duration       time.Duration
	batchSize      int
	subjects       []string
	companies      []string
	userIDs        []string
	redeliverRatio float64
}

// runBatchLoadLoop manages the rate-limited submission of BATCHES to the worker pool.
func runBatchLoadLoop(ctx context.Context, p loadParams, nc jetstream.ClientInterface, last *lastWrapups, pool *ants.PoolWithFunc, wg *sync.WaitGroup, loopWg *sync.WaitGroup) {
	defer loopWg.Done() // Signal that this loop goroutine has finished
	rate, duration, batchSize := p.rate, p.duration, p.batchSize

	// Ticker controls the rate of individual message generation attempts
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	durationTimer := time.NewTimer(duration)
	defer durationTimer.Stop()

	messageCounter := 0
	currentBatch := make([]IndividualTaskDetail, 0, batchSize)

	logger.Log.Info("Starting batch load generation loop",
		zap.Int("target_rate_per_sec", rate),
		zap.Duration("duration", duration),
		zap.Int("batch_size", batchSize),
	)

	// Function to submit the current batch
	submitBatch := func(batchToSubmit []IndividualTaskDetail) {
		if len(batchToSubmit) == 0 {
			return
		}
		batchData := BatchTask{
			Tasks:      batchToSubmit,
			NatsClient: nc,
			LastByUser: last,
		}
		// Increment WaitGroup for the number of tasks in this batch
		wg.Add(len(batchToSubmit))
		if err := pool.Invoke(batchData); err != nil {
			logger.Log.Warn("Failed to invoke worker pool for batch", zap.Int("batch_task_count", len(batchToSubmit)), zap.Error(err))
			// Need to decrement wg if invoke fails
			wg.Add(-len(batchToSubmit)) // Decrement by the number we failed to submit
			// Also record errors for these tasks
			for _, taskDetail := range batchToSubmit {
				observer.IncLoadgenPublishErrors(taskDetail.BaseSubject, taskDetail.CompanyID)
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("Load generation loop stopping due to context cancellation. Submitting final partial batch...")
			submitBatch(currentBatch) // Submit any remaining tasks
			return
		case <-durationTimer.C:
			logger.Log.Info("Load generation loop stopping after specified duration. Submitting final partial batch...")
			submitBatch(currentBatch) // Submit any remaining tasks
			return
		case <-ticker.C:
			// Check if context is already cancelled before proceeding
			select {
			case <-ctx.Done():
				logger.Log.Debug("Context cancelled during ticker processing, skipping new task addition.")
				// Don't submit anything new, just let the main loop exit handle final batch
				return
			default:
				// Context not cancelled, proceed
			}

			// Determine which message to generate
			selectedSubject := p.subjects[messageCounter%len(p.subjects)]
			selectedCompany := p.companies[messageCounter%len(p.companies)]
			selectedUser := p.userIDs[gofakeit.Number(0, len(p.userIDs)-1)]
			messageCounter++

			// Record the attempt
			observer.IncLoadgenMessagesAttempted(selectedSubject, selectedCompany)

			// Add to current batch
			currentBatch = append(currentBatch, IndividualTaskDetail{
				BaseSubject: selectedSubject,
				CompanyID:   selectedCompany,
				UserID:      selectedUser,
				Redeliver:   gofakeit.Float64Range(0, 1) < p.redeliverRatio,
			})

			// If batch is full, submit it
			if len(currentBatch) >= batchSize {
				submitBatch(currentBatch)
				currentBatch = make([]IndividualTaskDetail, 0, batchSize) // Reset for next batch
			}
		}
	}
}

// batchWorkerFunc processes a batch of tasks.
func batchWorkerFunc(data interface{}, wg *sync.WaitGroup) {
	batchTask := data.(BatchTask)

	for _, taskDetail := range batchTask.Tasks {
		func(td IndividualTaskDetail) {
			defer wg.Done() // Done is called for each task in the batch

			finalSubject := fmt.Sprintf("%s.%s", td.BaseSubject, td.CompanyID)

			if td.BaseSubject != string(model.V1CallWrapup) {
				logger.Log.Error("Unsupported base subject for payload generation in batch", zap.String("subject", td.BaseSubject))
				observer.IncLoadgenPublishErrors(td.BaseSubject, td.CompanyID)
				return
			}

			payloadBytes, ok := []byte(nil), false
			if td.Redeliver {
				payloadBytes, ok = batchTask.LastByUser.get(td.UserID)
			}
			if !ok {
				payload := model.NewCallWrapupPayload(&model.CallWrapupPayload{CompanyID: td.CompanyID, UserID: td.UserID})
				payloadBytes = utils.MustMarshalJSON(payload)
				batchTask.LastByUser.put(td.UserID, payloadBytes)
			}

			headers := map[string]string{"CompanyID": td.CompanyID}
			if err := batchTask.NatsClient.Publish(finalSubject, payloadBytes, headers); err != nil {
				logger.Log.Error("Failed to publish message in batch", zap.String("subject", finalSubject), zap.Error(err))
				observer.IncLoadgenPublishErrors(td.BaseSubject, td.CompanyID)
			} else {
				observer.IncLoadgenMessagesPublished(td.BaseSubject, td.CompanyID)
			}
		}(taskDetail)
	}
}
