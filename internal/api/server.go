package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-callback-board/internal/board"
	"gitlab.com/timkado/api/daisi-callback-board/internal/config"
	"gitlab.com/timkado/api/daisi-callback-board/internal/intent"
	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
	"gitlab.com/timkado/api/daisi-callback-board/internal/realtime"
)

// UserIDHeader carries the authenticated agent's ID, set by the gateway in front of the board.
const UserIDHeader = "X-User-ID"

// RequestIDHeader is echoed back on every response.
const RequestIDHeader = "X-Request-ID"

// CallbackService is what the API needs from the callback store accessor.
type CallbackService interface {
	List(ctx context.Context, userID string) ([]model.Callback, error)
	Board(ctx context.Context, userID string) (board.Snapshot, error)
	Get(ctx context.Context, userID, id string) (*model.Callback, error)
	Create(ctx context.Context, userID string, payload model.CreateCallbackPayload) (*model.Callback, error)
	Update(ctx context.Context, userID, id string, payload model.UpdateCallbackPayload) (*model.Callback, error)
	Complete(ctx context.Context, userID, id string) (*model.Callback, error)
	Cancel(ctx context.Context, userID, id string) (*model.Callback, error)
	Delete(ctx context.Context, userID, id string) error
	Reschedule(ctx context.Context, userID, id, target string) (*model.Callback, bool, error)
	PreviewIntent(ctx context.Context, payload model.IntentPreviewPayload) (intent.Result, error)
	Subscriber() realtime.Subscriber
}

// Server serves the board REST API and the board websocket stream.
type Server struct {
	service    CallbackService
	engine     *gin.Engine
	httpServer *http.Server
	upgrader   websocket.Upgrader
	logger     *zap.Logger

	// ctx is cancelled on Stop so hijacked websocket connections end with the server.
	ctx      context.Context
	cancel   context.CancelFunc
	sessions sync.WaitGroup
}

// NewServer builds the gin engine and the HTTP server from cfg.
func NewServer(cfg *config.Config, logger *zap.Logger, service CallbackService) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		service: service,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.API.AllowedOrigins),
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery())
	if cfg.API.EnableCORS {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowWebSockets = true
		if len(cfg.API.AllowedOrigins) == 0 || containsWildcard(cfg.API.AllowedOrigins) {
			corsConfig.AllowAllOrigins = true
		} else {
			corsConfig.AllowOrigins = cfg.API.AllowedOrigins
		}
		corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, UserIDHeader, RequestIDHeader)
		corsConfig.ExposeHeaders = []string{RequestIDHeader}
		s.engine.Use(cors.New(corsConfig))
	}
	s.engine.Use(requestContext(logger), requestMetrics())
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.API.Port),
		Handler:      s.engine,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	v1 := s.engine.Group("/api/v1", requireUser())
	{
		callbacks := v1.Group("/callbacks")
		callbacks.GET("", s.handleListCallbacks)
		callbacks.POST("", s.handleCreateCallback)
		callbacks.GET("/:id", s.handleGetCallback)
		callbacks.PATCH("/:id", s.handleUpdateCallback)
		callbacks.DELETE("/:id", s.handleDeleteCallback)
		callbacks.POST("/:id/complete", s.handleCompleteCallback)
		callbacks.POST("/:id/cancel", s.handleCancelCallback)
		callbacks.POST("/:id/reschedule", s.handleRescheduleCallback)

		v1.GET("/board", s.handleGetBoard)
		v1.GET("/board/stream", s.handleBoardStream)
		v1.POST("/intent/parse", s.handleParseIntent)
	}
}

// Handler exposes the engine for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		s.logger.Info("Starting API server", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("API server error", zap.Error(err))
		}
	}()
}

// Stop shuts the HTTP server down and closes open board streams.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server")
	s.cancel()

	err := s.httpServer.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("Board streams still open at shutdown deadline")
	}
	return err
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// originChecker allows same-origin and configured origins. An empty list or "*" allows all.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || containsWildcard(allowed) {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
