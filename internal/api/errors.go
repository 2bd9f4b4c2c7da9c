package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"fjacquet/donor-mapper/internal/logging"
	"fjacquet/donor-mapper/internal/mappingerror"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse creates an ErrorResponse with a fresh correlation id.
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: uuid.NewString()[:8],
	}
}

// HandleError logs err and writes it as an ErrorResponse with code.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)

	entry := c.logger.WithFields(
		logging.Field{Key: "correlation_id", Value: resp.CorrelationID},
		logging.Field{Key: "path", Value: ctx.Request().URL.Path},
		logging.Field{Key: "method", Value: ctx.Request().Method},
		logging.Field{Key: "code", Value: code},
	)
	if err != nil {
		entry = entry.WithError(err)
	}
	if code >= http.StatusInternalServerError {
		entry.Error(message)
	} else {
		entry.Debug(message)
	}

	return ctx.JSON(code, resp)
}

// handleDomainError picks the status code from the error kind.
func (c *Controller) handleDomainError(ctx echo.Context, err error, message string) error {
	switch {
	case errors.Is(err, mappingerror.ErrNotFound):
		return c.HandleError(ctx, err, message, http.StatusNotFound)
	case mappingerror.IsValidation(err):
		return c.HandleError(ctx, err, message, http.StatusBadRequest)
	case errors.Is(err, mappingerror.ErrNoProvider):
		return c.HandleError(ctx, err, message, http.StatusServiceUnavailable)
	default:
		var ce *mappingerror.ClassificationError
		var pe *mappingerror.ProviderError
		if errors.As(err, &ce) || errors.As(err, &pe) {
			return c.HandleError(ctx, err, message, http.StatusBadGateway)
		}
		return c.HandleError(ctx, err, message, http.StatusInternalServerError)
	}
}

func parseUintParam(value, name string) (uint, error) {
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil || id == 0 {
		return 0, &mappingerror.ValidationError{Field: name, Reason: "must be a positive integer"}
	}
	return uint(id), nil
}
