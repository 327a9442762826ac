package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/meetingintel/recordkeeper/internal/api/middleware"
	"github.com/meetingintel/recordkeeper/internal/core/domain"
)

// ctxRequest returns the request context built by the ResolveWorkspace
// middleware. Its absence means the route was mounted without the access
// chain, so the request is refused before any service call.
func ctxRequest(c echo.Context) (*domain.RequestContext, error) {
	rc, ok := middleware.RequestContextFrom(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return rc, nil
}

// ctxActor returns the actor injected by the Identify middleware.
func ctxActor(c echo.Context) (*domain.Actor, error) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return actor, nil
}

// ctxPrincipal returns the principal injected by the Authenticate middleware.
func ctxPrincipal(c echo.Context) (domain.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok || p.Key == "" {
		return domain.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return p, nil
}

// bindValid binds the body into req and runs the registered validator.
func bindValid(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(req)
}

// queryLimit reads the optional "limit" query parameter. Zero means the
// service default.
func queryLimit(c echo.Context) (int, error) {
	var limit int
	if err := echo.QueryParamsBinder(c).Int("limit", &limit).BindError(); err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
	}
	return limit, nil
}
