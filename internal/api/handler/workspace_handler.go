package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/meetingintel/recordkeeper/internal/core/ports"
)

// WorkspaceHandler lets a caller inspect its memberships and pin an active
// workspace for later requests.
type WorkspaceHandler struct {
	resolver ports.WorkspaceResolver
}

func NewWorkspaceHandler(resolver ports.WorkspaceResolver) *WorkspaceHandler {
	return &WorkspaceHandler{resolver: resolver}
}

// List handles GET /v1/workspaces.
//
// @Summary      List the caller's workspaces
// @Tags         workspaces
// @Produce      json
// @Security     ApiKeyAuth
// @Param        X-Workspace-ID  header    string  false  "Workspace id or name"
// @Success      200             {object}  workspacesResponse
// @Failure      401             {object}  errorResponse
// @Failure      403             {object}  errorResponse
// @Failure      503             {object}  errorResponse
// @Router       /v1/workspaces [get]
func (h *WorkspaceHandler) List(c echo.Context) error {
	rc, err := ctxRequest(c)
	if err != nil {
		return err
	}

	activeID := rc.Active().WorkspaceID
	ms := rc.Memberships()
	views := make([]workspaceView, 0, len(ms))
	for _, m := range ms {
		views = append(views, toWorkspaceView(m, activeID))
	}

	return c.JSON(http.StatusOK, workspacesResponse{
		Identity:   rc.IdentityKey(),
		Workspaces: views,
	})
}

// Current handles GET /v1/workspaces/current.
//
// @Summary      Show the workspace this request resolves to
// @Tags         workspaces
// @Produce      json
// @Security     ApiKeyAuth
// @Param        X-Workspace-ID  header    string  false  "Workspace id or name"
// @Success      200             {object}  workspaceView
// @Failure      401             {object}  errorResponse
// @Failure      403             {object}  errorResponse
// @Router       /v1/workspaces/current [get]
func (h *WorkspaceHandler) Current(c echo.Context) error {
	rc, err := ctxRequest(c)
	if err != nil {
		return err
	}
	active := rc.Active()
	return c.JSON(http.StatusOK, toWorkspaceView(active, active.WorkspaceID))
}

// SetActive handles PUT /v1/workspaces/active.
//
// @Summary      Pin the active workspace for the calling identity
// @Tags         workspaces
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        body  body      setActiveRequest  true  "Workspace id or name"
// @Success      200   {object}  workspaceView
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/workspaces/active [put]
func (h *WorkspaceHandler) SetActive(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req setActiveRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	m, err := h.resolver.SetActiveWorkspace(c.Request().Context(), p, req.Workspace)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toWorkspaceView(m, m.WorkspaceID))
}

// ClearActive handles DELETE /v1/workspaces/active.
//
// @Summary      Drop the pinned workspace
// @Tags         workspaces
// @Security     ApiKeyAuth
// @Success      204
// @Failure      403  {object}  errorResponse
// @Router       /v1/workspaces/active [delete]
func (h *WorkspaceHandler) ClearActive(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.resolver.ClearActiveWorkspace(c.Request().Context(), p); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
