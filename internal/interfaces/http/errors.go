package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/procurement-engine/internal/domain/entity"
)

// statusFor maps the error taxonomy to an HTTP status
func statusFor(err error) int {
	if errors.Is(err, entity.ErrUnauthenticated) {
		return http.StatusUnauthorized
	}
	switch entity.KindOf(err) {
	case entity.KindValidation:
		return http.StatusUnprocessableEntity
	case entity.KindAuthorization:
		return http.StatusForbidden
	case entity.KindState, entity.KindConflict:
		return http.StatusConflict
	case entity.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error response and logs it at the level its kind deserves
func (h *Handlers) respondError(c *gin.Context, op string, err error) {
	kind := entity.KindOf(err)
	status := statusFor(err)

	switch kind {
	case entity.KindConfiguration, entity.KindInternal:
		h.logger.Error(op+" failed", "error", err, "error_kind", kind, "path", c.Request.URL.Path)
	default:
		h.logger.Info(op+" refused", "error", err, "error_kind", kind, "path", c.Request.URL.Path)
	}

	message := err.Error()
	if kind == entity.KindInternal {
		message = "internal error"
	}
	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Code:    entity.CodeOf(err),
		Error:   message,
	})
}

// badRequest reports a malformed request that never reached a service
func (h *Handlers) badRequest(c *gin.Context, message string, err error) {
	h.logger.Info("Bad request", "error", err, "path", c.Request.URL.Path)
	c.AbortWithStatusJSON(http.StatusBadRequest, Response{
		Success: false,
		Code:    "BAD_REQUEST",
		Error:   message,
	})
}
