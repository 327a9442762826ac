package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/meetingintel/recordkeeper/internal/core/domain"
	"github.com/meetingintel/recordkeeper/internal/core/ports"
)

// AdminHandler exposes workspace and membership administration. Every route
// runs behind Identify, so the caller needs no active workspace.
type AdminHandler struct {
	service ports.AdminService
}

func NewAdminHandler(service ports.AdminService) *AdminHandler {
	return &AdminHandler{service: service}
}

// CreateWorkspace handles POST /v1/admin/workspaces.
//
// @Summary      Create a workspace
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        body  body      createWorkspaceRequest  true  "Workspace slug and display name"
// @Success      201   {object}  domain.Workspace
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/admin/workspaces [post]
func (h *AdminHandler) CreateWorkspace(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var req createWorkspaceRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	ws, err := h.service.CreateWorkspace(c.Request().Context(), actor, ports.CreateWorkspaceInput{
		Name:        req.Name,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ws)
}

// ListWorkspaces handles GET /v1/admin/workspaces. Administrators see every
// workspace, other identities only their own.
//
// @Summary      List workspaces visible to the caller
// @Tags         admin
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {array}   domain.Workspace
// @Failure      403  {object}  errorResponse
// @Router       /v1/admin/workspaces [get]
func (h *AdminHandler) ListWorkspaces(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	list, err := h.service.ListWorkspaces(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.Workspace{}
	}
	return c.JSON(http.StatusOK, list)
}

// SetArchived handles PATCH /v1/admin/workspaces/:id.
//
// @Summary      Archive or unarchive a workspace
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id    path      string          true  "Workspace id or name"
// @Param        body  body      archiveRequest  true  "Archive flag"
// @Success      200   {object}  domain.Workspace
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/admin/workspaces/{id} [patch]
func (h *AdminHandler) SetArchived(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var req archiveRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	ws, err := h.service.SetArchived(c.Request().Context(), actor, c.Param("id"), *req.Archived)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ws)
}

// ListMembers handles GET /v1/admin/workspaces/:id/members.
//
// @Summary      List workspace members
// @Tags         admin
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "Workspace id or name"
// @Success      200  {object}  membersResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/admin/workspaces/{id}/members [get]
func (h *AdminHandler) ListMembers(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	members, err := h.service.ListMembers(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	if members == nil {
		members = []domain.Member{}
	}
	return c.JSON(http.StatusOK, membersResponse{WorkspaceID: c.Param("id"), Members: members})
}

// AddMember handles POST /v1/admin/workspaces/:id/members.
//
// @Summary      Grant an identity a role in a workspace
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id    path      string            true  "Workspace id or name"
// @Param        body  body      addMemberRequest  true  "Identity and role"
// @Success      201   {object}  domain.Member
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/admin/workspaces/{id}/members [post]
func (h *AdminHandler) AddMember(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var req addMemberRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return err
	}

	m, err := h.service.AddMember(c.Request().Context(), actor, c.Param("id"), req.IdentityKey, role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, m)
}

// ChangeRole handles PATCH /v1/admin/workspaces/:id/members/:identity.
//
// @Summary      Change a member's role
// @Tags         admin
// @Accept       json
// @Security     ApiKeyAuth
// @Param        id        path  string             true  "Workspace id or name"
// @Param        identity  path  string             true  "Identity key"
// @Param        body      body  changeRoleRequest  true  "New role"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/admin/workspaces/{id}/members/{identity} [patch]
func (h *AdminHandler) ChangeRole(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var req changeRoleRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return err
	}

	if err := h.service.ChangeRole(c.Request().Context(), actor, c.Param("id"), c.Param("identity"), role); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// RemoveMember handles DELETE /v1/admin/workspaces/:id/members/:identity.
//
// @Summary      Revoke a membership
// @Tags         admin
// @Security     ApiKeyAuth
// @Param        id        path  string  true  "Workspace id or name"
// @Param        identity  path  string  true  "Identity key"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/admin/workspaces/{id}/members/{identity} [delete]
func (h *AdminHandler) RemoveMember(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	if err := h.service.RemoveMember(c.Request().Context(), actor, c.Param("id"), c.Param("identity")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListAudit handles GET /v1/admin/workspaces/:id/audit.
//
// @Summary      List recent audit entries of a workspace
// @Tags         admin
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id     path      string  true   "Workspace id or name"
// @Param        limit  query     int     false  "Maximum number of entries"
// @Success      200    {object}  auditResponse
// @Failure      403    {object}  errorResponse
// @Router       /v1/admin/workspaces/{id}/audit [get]
func (h *AdminHandler) ListAudit(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}

	entries, err := h.service.ListAudit(c.Request().Context(), actor, c.Param("id"), limit)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []*domain.AuditEntry{}
	}
	return c.JSON(http.StatusOK, auditResponse{WorkspaceID: c.Param("id"), Entries: entries})
}
