package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/meetingintel/recordkeeper/internal/core/domain"
	"github.com/meetingintel/recordkeeper/internal/core/service"
)

// Require rejects the request unless the active membership permits op.
// Ownership rules need the target entity and are applied again by the
// service once it is loaded.
func Require(op domain.Operation) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rc, ok := RequestContextFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if err := service.Authorize(rc, op, nil); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// RequireMethod maps the HTTP method to an operation and applies Require.
func RequireMethod() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return Require(OperationFor(c.Request().Method))(next)(c)
		}
	}
}

// OperationFor returns the record operation implied by an HTTP method.
func OperationFor(method string) domain.Operation {
	switch method {
	case http.MethodPost:
		return domain.OpCreate
	case http.MethodPut, http.MethodPatch:
		return domain.OpUpdate
	case http.MethodDelete:
		return domain.OpDelete
	default:
		return domain.OpRead
	}
}
