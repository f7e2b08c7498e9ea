package realtime

import (
	"context"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-callback-board/internal/board"
	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
	"gitlab.com/timkado/api/daisi-callback-board/internal/observer"
	"gitlab.com/timkado/api/daisi-callback-board/pkg/logger"
)

// Message types pushed to a board stream.
const (
	MessageBoard        = "board"
	MessageOverdueAlert = "overdue_alert"
	MessageError        = "error"
)

// LoadErrorMessage is shown when a refetch fails. The client keeps its last board.
const LoadErrorMessage = "Failed to load callbacks"

// Message is one frame on the board stream.
type Message struct {
	Type    string          `json:"type"`
	Board   *board.Snapshot `json:"board,omitempty"`
	Message string          `json:"message,omitempty"`
	Count   int             `json:"count,omitempty"`
}

// LoadFunc fetches a fresh board for the session's user.
type LoadFunc func(ctx context.Context) (board.Snapshot, error)

// SendFunc writes one frame to the client. It is only ever called from the
// session's Run goroutine.
type SendFunc func(msg Message) error

// Session is one live board view. It refetches on connect and after every
// change notification, and owns the overdue Notifier for that view.
type Session struct {
	userID   string
	feed     Subscriber
	load     LoadFunc
	send     SendFunc
	notifier board.Notifier
	// capacity 1: a burst of notifications collapses into one pending refetch
	trigger chan struct{}
}

// NewSession creates a session for userID.
func NewSession(userID string, feed Subscriber, load LoadFunc, send SendFunc) *Session {
	return &Session{
		userID:  userID,
		feed:    feed,
		load:    load,
		send:    send,
		trigger: make(chan struct{}, 1),
	}
}

// Notify schedules a refetch. It never blocks.
func (s *Session) Notify() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run subscribes to the user's change feed and serves the session until ctx
// is cancelled or a frame cannot be delivered. The subscription is always
// released before Run returns.
func (s *Session) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).With(zap.String("user_id", s.userID))

	unsubscribe, err := s.feed.Subscribe(s.userID, func(model.CallbackChangeEvent) { s.Notify() })
	if err != nil {
		log.Error("Failed to subscribe to callback changes", zap.Error(err))
		return err
	}
	defer unsubscribe()

	observer.AddBoardSessions(1)
	defer observer.AddBoardSessions(-1)
	log.Info("Board session started")
	defer log.Info("Board session ended")

	if err := s.refresh(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.trigger:
			if err := s.refresh(ctx); err != nil {
				return err
			}
		}
	}
}

// refresh reloads the board and pushes it. Load failures are reported to the
// client without ending the session; only send failures are returned.
func (s *Session) refresh(ctx context.Context) error {
	snap, err := s.load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		logger.FromContext(ctx).Warn("Failed to refresh board", zap.String("user_id", s.userID), zap.Error(err))
		return s.send(Message{Type: MessageError, Message: LoadErrorMessage})
	}

	if err := s.send(Message{Type: MessageBoard, Board: &snap}); err != nil {
		return err
	}

	if s.notifier.Observe(snap.OverdueCount) {
		observer.IncOverdueAlerts()
		return s.send(Message{
			Type:    MessageOverdueAlert,
			Message: board.AlertMessage(snap.OverdueCount),
			Count:   snap.OverdueCount,
		})
	}
	return nil
}
