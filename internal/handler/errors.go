package handler

import (
	"errors"
	"net/http"

	"cinema/internal/logger"
	"cinema/internal/service"
	"cinema/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeError maps service errors to HTTP responses. Anything unrecognised is
// a 500 and is written to the exception log.
func writeError(c *gin.Context, audit service.AuditService, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, service.ErrUnauthorized):
		status, message = http.StatusForbidden, service.ErrUnauthorized.Error()
	case errors.Is(err, service.ErrUnauthenticated):
		status, message = http.StatusUnauthorized, err.Error()
	case errors.Is(err, service.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrNotRedeemable):
		status, message = http.StatusConflict, service.ErrNotRedeemable.Error()
	case errors.Is(err, service.ErrInsufficientInventory),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrDuplicate):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	}

	if status == http.StatusInternalServerError {
		ctx := c.Request.Context()
		logger.FromContext(ctx).Error("request failed", "error", err)
		if audit != nil {
			audit.RecordException(ctx, err.Error())
		}
	}

	c.JSON(status, response.Error(status, message).WithRequestID(logger.RequestID(c.Request.Context())))
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, message))
}
