package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"reservations/internal/app/apperr"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

// Responder renders the success and error envelopes. Details carry the
// wrapped cause and are withheld in production.
type Responder struct {
	Production bool
	Logger     *slog.Logger
}

func (r Responder) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

func (r Responder) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, envelope{Success: true, Data: data})
}

func (r Responder) Error(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	body := envelope{Success: false, Message: apperr.MessageOf(err)}
	if !r.Production {
		body.Details = err.Error()
	}
	if r.Logger != nil {
		level := slog.LevelDebug
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		r.Logger.Log(c.Request.Context(), level, "request failed",
			"path", c.FullPath(), "status", status, "kind", kind, "error", err)
	}
	c.AbortWithStatusJSON(status, body)
}

// BadRequest reports a malformed request body or parameter.
func (r Responder) BadRequest(c *gin.Context, message string, cause error) {
	if cause == nil {
		r.Error(c, apperr.BadRequest(message))
		return
	}
	r.Error(c, apperr.Wrap(apperr.KindBadRequest, message, cause))
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindBadRequest:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
