package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/meetingintel/recordkeeper/internal/core/domain"
	"github.com/meetingintel/recordkeeper/internal/core/ports"
)

const (
	// CredentialParam is the path segment carrying a credential for clients
	// that cannot set headers.
	CredentialParam = "credential"
	// TokenQuery is the query parameter fallback for the credential.
	TokenQuery = "token"
	// APIKeyHeader carries a raw API key.
	APIKeyHeader = "X-API-Key"
	// WorkspaceHeader selects the active workspace by id or name.
	WorkspaceHeader = "X-Workspace-ID"

	principalKey      = "principal"
	requestContextKey = "request_context"
	actorKey          = "actor"
)

// Authenticate extracts the credential, verifies it and injects the
// principal into the echo context. A request with no credential at all gets a
// 401; every other failure is left to the error handler.
func Authenticate(auth ports.Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, fromAuthHeader := credentialFrom(c)
			if raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			p, err := auth.Authenticate(c.Request().Context(), raw)
			if err != nil {
				return err
			}
			if fromAuthHeader && p.Method == domain.AccessAPIKey {
				p.Method = domain.AccessBearer
			}

			c.Set(principalKey, p)
			return next(c)
		}
	}
}

// credentialFrom applies the extraction order: path segment, query
// parameter, API key header, bearer header. The second result is true when
// the value came from the Authorization header.
func credentialFrom(c echo.Context) (string, bool) {
	if v := strings.TrimSpace(c.Param(CredentialParam)); v != "" {
		return v, false
	}
	if v := strings.TrimSpace(c.QueryParam(TokenQuery)); v != "" {
		return v, false
	}
	if v := strings.TrimSpace(c.Request().Header.Get(APIKeyHeader)); v != "" {
		return v, false
	}

	parts := strings.SplitN(c.Request().Header.Get(echo.HeaderAuthorization), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1]), true
	}
	return "", false
}

// ResolveWorkspace builds the request context for the authenticated
// principal, honouring the X-Workspace-ID selector. Must run after
// Authenticate.
func ResolveWorkspace(resolver ports.WorkspaceResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			selector := strings.TrimSpace(c.Request().Header.Get(WorkspaceHeader))
			rc, err := resolver.Resolve(c.Request().Context(), p, selector)
			if err != nil {
				return err
			}

			c.Set(requestContextKey, rc)
			return next(c)
		}
	}
}

// Identify loads the principal's identity and memberships without choosing
// an active workspace. Management routes use it so an admin with no
// memberships can still bootstrap workspaces.
func Identify(resolver ports.WorkspaceResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			actor, err := resolver.Identify(c.Request().Context(), p)
			if err != nil {
				return err
			}

			c.Set(actorKey, actor)
			return next(c)
		}
	}
}

// PrincipalFrom returns the principal injected by Authenticate.
func PrincipalFrom(c echo.Context) (domain.Principal, bool) {
	p, ok := c.Get(principalKey).(domain.Principal)
	return p, ok
}

// RequestContextFrom returns the context injected by ResolveWorkspace.
func RequestContextFrom(c echo.Context) (*domain.RequestContext, bool) {
	rc, ok := c.Get(requestContextKey).(*domain.RequestContext)
	return rc, ok && rc != nil
}

// ActorFrom returns the actor injected by Identify.
func ActorFrom(c echo.Context) (*domain.Actor, bool) {
	a, ok := c.Get(actorKey).(*domain.Actor)
	return a, ok && a != nil
}

// WithPrincipal stores p on c. Exposed for handler tests.
func WithPrincipal(c echo.Context, p domain.Principal) { c.Set(principalKey, p) }

// WithRequestContext stores rc on c. Exposed for handler tests.
func WithRequestContext(c echo.Context, rc *domain.RequestContext) { c.Set(requestContextKey, rc) }

// WithActor stores a on c. Exposed for handler tests.
func WithActor(c echo.Context, a *domain.Actor) { c.Set(actorKey, a) }
