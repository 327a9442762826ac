package domain

import (
	"fmt"
	"strings"
)

// Role is a capability level within one workspace.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleMember Role = "member"
	RoleChair  Role = "chair"
)

// ParseRole validates s as a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleViewer, RoleMember, RoleChair:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
	}
}

// Identity is a person or service principal recognised by the control store.
// IsAdmin grants workspace and membership management only, never data access.
type Identity struct {
	ID                 string `json:"id"`
	Key                string `json:"key"`
	DisplayName        string `json:"display_name,omitempty"`
	IsAdmin            bool   `json:"is_admin"`
	DefaultWorkspaceID string `json:"default_workspace_id,omitempty"`
}

// NormalizeKey lower-cases and trims an identity key (email or principal id).
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Membership is one identity's role in one workspace, joined with the
// workspace attributes the access core needs.
type Membership struct {
	WorkspaceID          string         `json:"workspace_id"`
	WorkspaceName        string         `json:"workspace_name"`
	WorkspaceDisplayName string         `json:"workspace_display_name"`
	BackingStore         BackingStoreID `json:"-"`
	Role                 Role           `json:"role"`
	IsDefault            bool           `json:"is_default"`
	IsArchived           bool           `json:"is_archived"`
}

// Matches reports whether selector names this membership's workspace, by ID or slug.
func (m Membership) Matches(selector string) bool {
	return selector != "" && (m.WorkspaceID == selector || m.WorkspaceName == selector)
}

// Member is a membership row as seen from the workspace side.
type Member struct {
	IdentityID  string `json:"identity_id"`
	IdentityKey string `json:"identity_key"`
	DisplayName string `json:"display_name,omitempty"`
	Role        Role   `json:"role"`
}
