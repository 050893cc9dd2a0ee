package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/checklisthq/schema-engine/internal/core/domain"
	"github.com/checklisthq/schema-engine/internal/core/ports"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known engine errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Caller misuse → 4xx with the real message: these are deterministic
	// and carry no internals.
	switch {
	case errors.Is(err, domain.ErrInvalidTenantID):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrInvalidVersion):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrUnknownRule):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrMigrationNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrTenantLocked):
		return http.StatusConflict, "a run is already in progress for this tenant"
	case errors.Is(err, ports.ErrNotFound):
		return http.StatusNotFound, "document not found"
	case errors.Is(err, ports.ErrPermissionDenied):
		return http.StatusForbidden, "store permission denied"
	case errors.Is(err, ports.ErrUnavailable):
		return http.StatusServiceUnavailable, "document store unavailable"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
