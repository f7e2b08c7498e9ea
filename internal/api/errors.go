package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"gitlab.com/timkado/api/daisi-callback-board/internal/apperrors"
)

// User-facing failure messages.
const (
	msgLoadFailed   = "Failed to load callbacks"
	msgCreateFailed = "Failed to create callback"
	msgUpdateFailed = "Failed to update callback"
	msgDeleteFailed = "Failed to delete callback"
	msgNotFound     = "Callback not found"
	msgParseFailed  = "Failed to parse notes"
)

var errMissingTarget = errors.New("target is required")

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// statusFor maps an error category to an HTTP status.
func statusFor(err error) int {
	switch apperrors.Kind(err) {
	case "validation", "bad_request":
		return http.StatusBadRequest
	case "unauthorized":
		return http.StatusUnauthorized
	case "not_found":
		return http.StatusNotFound
	case "duplicate", "conflict":
		return http.StatusConflict
	case "timeout":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes message with the status for err. Client errors carry the
// underlying reason as detail; server errors do not leak it.
func respondError(c *gin.Context, err error, message string) {
	status := statusFor(err)
	resp := ErrorResponse{Error: message}
	switch status {
	case http.StatusNotFound:
		resp.Error = msgNotFound
	case http.StatusBadRequest, http.StatusConflict:
		resp.Detail = err.Error()
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

func badRequest(err error) error {
	return fmt.Errorf("%w: %v", apperrors.ErrBadRequest, err)
}
