package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/prohmpiriya/shelf-booking/internal/domain"
	"github.com/prohmpiriya/shelf-booking/pkg/logger"
	"github.com/prohmpiriya/shelf-booking/pkg/response"
)

// handleError converts domain errors to HTTP responses
func handleError(c *gin.Context, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		response.Unauthorized(c, err.Error())
	case domain.IsForbiddenError(err):
		response.Forbidden(c, err.Error())
	case domain.IsNotFoundError(err):
		response.NotFound(c, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		response.Error(c, http.StatusBadRequest, "INVALID_TRANSITION", err.Error(), "")
	case domain.IsValidationError(err):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), "")
	case domain.IsConflictError(err):
		response.Conflict(c, err.Error())
	default:
		logger.Get().ErrorContext(c.Request.Context(), "unhandled error",
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
		response.InternalError(c)
	}
}

// bindError answers a request whose body or query could not be decoded
func bindError(c *gin.Context, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "invalid request")
	response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request", err.Error())
}
