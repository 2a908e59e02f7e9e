package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"contentpilot/scheduler"
	"contentpilot/storage"
	"contentpilot/types"
)

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrJobInProgress), errors.Is(err, scheduler.ErrAlreadyGenerated):
		return http.StatusConflict
	case errors.Is(err, types.ErrUnknownFrequency),
		errors.Is(err, types.ErrEmptyCustomDays),
		errors.Is(err, types.ErrInvalidTimeOfDay),
		errors.Is(err, types.ErrInvalidRunSize):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
