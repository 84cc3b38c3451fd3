package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/runnerr0/dwell/internal/storage"
	"github.com/runnerr0/dwell/internal/tracker"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// respondErr maps core error classes onto HTTP statuses.
func respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrValidation):
		RespondError(c, http.StatusBadRequest, "validation_failed", err)
	case errors.Is(err, tracker.ErrInvalidEvent):
		RespondError(c, http.StatusBadRequest, "invalid_event", err)
	case errors.Is(err, tracker.ErrHostState):
		RespondError(c, http.StatusAccepted, "host_state", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}
