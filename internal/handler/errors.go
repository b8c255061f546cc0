package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"billingengine/internal/billing"
	"billingengine/internal/repository"
)

// statusFor maps domain errors to HTTP codes. Anything unrecognised is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, billing.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, billing.ErrDocumentLocked), errors.Is(err, repository.ErrStatusConflict):
		return http.StatusConflict
	case errors.Is(err, billing.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, log *zap.Logger, op string, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Error(op+": failed", zap.Error(err))
		c.JSON(code, gin.H{"error": "internal error"})
		return
	}
	log.Warn(op+": rejected", zap.Int("status", code), zap.Error(err))
	body := gin.H{"error": err.Error()}
	var ve *billing.ValidationError
	if errors.As(err, &ve) {
		body["field"] = ve.Field
	}
	c.JSON(code, body)
}

func parseID(c *gin.Context, log *zap.Logger, op string) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		log.Warn(op+": invalid id format", zap.String("id", raw))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
