package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/firebase-recipes/recipes-api/internal/catalog"
	"github.com/firebase-recipes/recipes-api/internal/recipes/domain"
	"github.com/firebase-recipes/recipes-api/internal/views"
)

// statusFor maps catalog errors onto HTTP status codes.
func statusFor(err error) int {
	var ve *domain.ValidationError
	var pe *domain.PersistenceError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, views.ErrViewNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrDeleteNotConfirmed), errors.Is(err, catalog.ErrLoadInProgress):
		return http.StatusConflict
	case errors.Is(err, catalog.ErrClosed):
		return http.StatusGone
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &pe):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"ok": false, "error": err.Error()}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		body["error"] = ve.Message
		body["field"] = ve.Field
	}
	if errors.Is(err, catalog.ErrDeleteNotConfirmed) {
		body["prompt"] = catalog.DeletePrompt
	}
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, body)
}
