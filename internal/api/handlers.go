package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
	"gitlab.com/timkado/api/daisi-callback-board/pkg/logger"
)

// ListResponse wraps the pending callback list.
type ListResponse struct {
	Callbacks []model.Callback `json:"callbacks"`
}

// RescheduleResponse reports the callback after a drop. Changed is false when
// the drop was a no-op.
type RescheduleResponse struct {
	Callback *model.Callback `json:"callback"`
	Changed  bool            `json:"changed"`
}

func (s *Server) handleListCallbacks(c *gin.Context) {
	callbacks, err := s.service.List(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err, msgLoadFailed)
		return
	}
	if callbacks == nil {
		callbacks = []model.Callback{}
	}
	c.JSON(http.StatusOK, ListResponse{Callbacks: callbacks})
}

func (s *Server) handleGetCallback(c *gin.Context) {
	cb, err := s.service.Get(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		respondError(c, err, msgLoadFailed)
		return
	}
	c.JSON(http.StatusOK, cb)
}

func (s *Server) handleCreateCallback(c *gin.Context) {
	var payload model.CreateCallbackPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, badRequest(err), msgCreateFailed)
		return
	}

	cb, err := s.service.Create(c.Request.Context(), userID(c), payload)
	if err != nil {
		respondError(c, err, msgCreateFailed)
		return
	}
	c.JSON(http.StatusCreated, cb)
}

func (s *Server) handleUpdateCallback(c *gin.Context) {
	var payload model.UpdateCallbackPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, badRequest(err), msgUpdateFailed)
		return
	}

	cb, err := s.service.Update(c.Request.Context(), userID(c), c.Param("id"), payload)
	if err != nil {
		respondError(c, err, msgUpdateFailed)
		return
	}
	c.JSON(http.StatusOK, cb)
}

func (s *Server) handleDeleteCallback(c *gin.Context) {
	if err := s.service.Delete(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		respondError(c, err, msgDeleteFailed)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleCompleteCallback(c *gin.Context) {
	cb, err := s.service.Complete(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		respondError(c, err, msgUpdateFailed)
		return
	}
	c.JSON(http.StatusOK, cb)
}

func (s *Server) handleCancelCallback(c *gin.Context) {
	cb, err := s.service.Cancel(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		respondError(c, err, msgUpdateFailed)
		return
	}
	c.JSON(http.StatusOK, cb)
}

func (s *Server) handleRescheduleCallback(c *gin.Context) {
	var payload model.ReschedulePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, badRequest(err), msgUpdateFailed)
		return
	}
	if payload.Target == "" {
		respondError(c, badRequest(errMissingTarget), msgUpdateFailed)
		return
	}

	cb, changed, err := s.service.Reschedule(c.Request.Context(), userID(c), c.Param("id"), payload.Target)
	if err != nil {
		respondError(c, err, msgUpdateFailed)
		return
	}
	if changed {
		logger.FromContext(c.Request.Context()).Info("Callback rescheduled",
			zap.String("callback_id", cb.ID),
			zap.String("target", payload.Target),
			zap.Time("scheduled_for", cb.ScheduledFor))
	}
	c.JSON(http.StatusOK, RescheduleResponse{Callback: cb, Changed: changed})
}

func (s *Server) handleGetBoard(c *gin.Context) {
	snap, err := s.service.Board(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err, msgLoadFailed)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleParseIntent(c *gin.Context) {
	var payload model.IntentPreviewPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, badRequest(err), msgParseFailed)
		return
	}

	result, err := s.service.PreviewIntent(c.Request.Context(), payload)
	if err != nil {
		respondError(c, err, msgParseFailed)
		return
	}
	c.JSON(http.StatusOK, result)
}
