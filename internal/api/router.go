package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/meetingintel/recordkeeper/docs"
	"github.com/meetingintel/recordkeeper/internal/api/handler"
	"github.com/meetingintel/recordkeeper/internal/api/middleware"
	"github.com/meetingintel/recordkeeper/internal/core/ports"
)

// Deps is everything the HTTP layer needs. All stateful components are built
// once by the caller and shared.
type Deps struct {
	Authenticator ports.Authenticator
	Resolver      ports.WorkspaceResolver
	Records       ports.RecordService
	Admin         ports.AdminService
	Checks        map[string]handler.Check
	Log           zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())

	// --- Probes, metrics and docs (no auth required) ---
	health := handler.NewHealthHandler(d.Checks)
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", health.Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	authenticate := middleware.Authenticate(d.Authenticator)
	resolve := middleware.ResolveWorkspace(d.Resolver)
	v1 := e.Group("/v1")

	// --- Workspaces ---
	workspaces := handler.NewWorkspaceHandler(d.Resolver)
	wg := v1.Group("/workspaces", authenticate)
	wg.GET("", workspaces.List, resolve)
	wg.GET("/current", workspaces.Current, resolve)
	wg.PUT("/active", workspaces.SetActive)
	wg.DELETE("/active", workspaces.ClearActive)

	// --- Records, with the credential in a header or in the path ---
	records := handler.NewRecordHandler(d.Records)
	registerRecords(v1.Group("/records", authenticate, resolve, middleware.RequireMethod()), records)
	registerRecords(v1.Group("/k/:"+middleware.CredentialParam+"/records", authenticate, resolve, middleware.RequireMethod()), records)

	// --- Administration ---
	admin := handler.NewAdminHandler(d.Admin)
	ag := v1.Group("/admin", authenticate, middleware.Identify(d.Resolver))
	ag.POST("/workspaces", admin.CreateWorkspace)
	ag.GET("/workspaces", admin.ListWorkspaces)
	ag.PATCH("/workspaces/:id", admin.SetArchived)
	ag.GET("/workspaces/:id/audit", admin.ListAudit)
	ag.GET("/workspaces/:id/members", admin.ListMembers)
	ag.POST("/workspaces/:id/members", admin.AddMember)
	ag.PATCH("/workspaces/:id/members/:identity", admin.ChangeRole)
	ag.DELETE("/workspaces/:id/members/:identity", admin.RemoveMember)

	return e
}

func registerRecords(g *echo.Group, h *handler.RecordHandler) {
	g.GET("/:type", h.List)
	g.POST("/:type", h.Create)
	g.GET("/:type/:id", h.Get)
	g.PATCH("/:type/:id", h.Update)
	g.DELETE("/:type/:id", h.Delete)
}
