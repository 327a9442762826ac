package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/meetingintel/recordkeeper/internal/api/middleware"
	"github.com/meetingintel/recordkeeper/internal/core/domain"
	"github.com/meetingintel/recordkeeper/internal/pkg/metrics"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Answers every authentication and authorization failure with the same
//     403 body; the internal reason is only logged.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, missing credential).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	switch {
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrForbidden):
		stage := "authorize"
		if errors.Is(err, domain.ErrUnauthenticated) {
			stage = "authenticate"
		}
		metrics.DenialsTotal.WithLabelValues(stage).Inc()
		event := log.Warn().
			Str("stage", stage).
			Str("reason", domain.DenialReason(err)).
			Str("method", c.Request().Method).
			Str("path", c.Path())
		if p, ok := middleware.PrincipalFrom(c); ok {
			event = event.Str("identity", p.Key)
		}
		event.Msg("access denied")
		return http.StatusForbidden, "access denied"

	case errors.Is(err, domain.ErrControlStoreUnavailable):
		log.Error().
			Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg("control store unavailable")
		return http.StatusServiceUnavailable, "service temporarily unavailable"

	case errors.Is(err, domain.ErrStorageUnavailable), errors.Is(err, domain.ErrRegistryClosed):
		log.Error().
			Err(err).
			Str("path", c.Path()).
			Msg("workspace storage unavailable")
		return http.StatusServiceUnavailable, "storage temporarily unavailable"

	case errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound, "record not found"
	case errors.Is(err, domain.ErrWorkspaceNotFound):
		return http.StatusNotFound, "workspace not found"
	case errors.Is(err, domain.ErrIdentityNotFound):
		return http.StatusNotFound, "identity not found"
	case errors.Is(err, domain.ErrCredentialNotFound):
		return http.StatusNotFound, "credential not found"
	case errors.Is(err, domain.ErrMembershipNotFound):
		return http.StatusNotFound, "membership not found"

	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusUnprocessableEntity, err.Error()

	case errors.Is(err, domain.ErrWorkspaceExists):
		return http.StatusConflict, "workspace already exists"
	case errors.Is(err, domain.ErrMembershipExists):
		return http.StatusConflict, "membership already exists"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
