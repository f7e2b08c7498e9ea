package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-callback-board/internal/board"
	"gitlab.com/timkado/api/daisi-callback-board/internal/realtime"
	"gitlab.com/timkado/api/daisi-callback-board/pkg/logger"
	"gitlab.com/timkado/api/daisi-callback-board/pkg/utils"
)

// writeWait bounds a single frame write to a board stream.
const writeWait = 10 * time.Second

// handleBoardStream upgrades to a websocket and runs one board session on it.
// The client only listens; anything it sends is discarded, and a read error
// ends the session.
func (s *Server) handleBoardStream(c *gin.Context) {
	user := userID(c)
	log := logger.FromContext(c.Request.Context())

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		log.Warn("Board stream upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	s.sessions.Add(1)
	defer s.sessions.Done()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	session := realtime.NewSession(user, s.service.Subscriber(),
		func(ctx context.Context) (board.Snapshot, error) {
			return s.service.Board(ctx, user)
		},
		func(msg realtime.Message) error {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			return conn.WriteJSON(msg)
		},
	)

	if err := utils.WrapWithContextRecovery("board session", session.Run)(ctx); err != nil {
		log.Info("Board stream closed", zap.Error(err))
	}
}
