package handler

import "github.com/meetingintel/recordkeeper/internal/core/domain"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Workspaces ---

type workspaceView struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	DisplayName string      `json:"display_name"`
	Role        domain.Role `json:"role"`
	IsDefault   bool        `json:"is_default"`
	IsArchived  bool        `json:"is_archived"`
	Active      bool        `json:"active"`
}

type workspacesResponse struct {
	Identity   string          `json:"identity"`
	Workspaces []workspaceView `json:"workspaces"`
}

type setActiveRequest struct {
	Workspace string `json:"workspace" validate:"required,max=100"`
}

func toWorkspaceView(m domain.Membership, activeID string) workspaceView {
	return workspaceView{
		ID:          m.WorkspaceID,
		Name:        m.WorkspaceName,
		DisplayName: m.WorkspaceDisplayName,
		Role:        m.Role,
		IsDefault:   m.IsDefault,
		IsArchived:  m.IsArchived,
		Active:      m.WorkspaceID == activeID,
	}
}

// --- Records ---

type createRecordRequest struct {
	Title   string `json:"title"   validate:"required,max=500"`
	Content string `json:"content" validate:"max=20000"`
	Status  string `json:"status"  validate:"omitempty,max=64"`
}

type updateRecordRequest struct {
	Title   *string `json:"title"   validate:"omitempty,min=1,max=500"`
	Content *string `json:"content" validate:"omitempty,max=20000"`
	Status  *string `json:"status"  validate:"omitempty,max=64"`
}

type recordsResponse struct {
	Workspace string           `json:"workspace"`
	Records   []*domain.Record `json:"records"`
}

// --- Admin ---

type createWorkspaceRequest struct {
	Name        string `json:"name"         validate:"required,slug"`
	DisplayName string `json:"display_name" validate:"max=200"`
}

type archiveRequest struct {
	Archived *bool `json:"archived" validate:"required"`
}

type addMemberRequest struct {
	IdentityKey string `json:"identity" validate:"required,max=320"`
	Role        string `json:"role"     validate:"required,role"`
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,role"`
}

type membersResponse struct {
	WorkspaceID string          `json:"workspace_id"`
	Members     []domain.Member `json:"members"`
}

type auditResponse struct {
	WorkspaceID string               `json:"workspace_id"`
	Entries     []*domain.AuditEntry `json:"entries"`
}
