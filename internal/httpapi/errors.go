package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/kiln/internal/core/task"
	"github.com/example/kiln/internal/ports/primary"
	"github.com/example/kiln/internal/ports/secondary"
)

// statusFor maps a service error onto an HTTP status. Anything not
// recognised is a rejected request: services validate input before they
// touch the store, and store failures arrive wrapped in PersistenceError.
func statusFor(err error) int {
	var (
		concurrent  *primary.ConcurrentRegenerationError
		invalid     *task.InvalidTaskStateError
		persistence *primary.PersistenceError
	)
	switch {
	case errors.As(err, &concurrent):
		return http.StatusConflict
	case errors.As(err, &invalid):
		return http.StatusConflict
	case errors.As(err, &persistence):
		return http.StatusInternalServerError
	case errors.Is(err, secondary.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, errorJSON{Success: false, Error: err.Error()})
}
