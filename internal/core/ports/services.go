package ports

import (
	"context"
	"time"

	"github.com/meetingintel/recordkeeper/internal/core/domain"
)

// Authenticator turns a raw credential into a verified principal.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (domain.Principal, error)
}

// WorkspaceResolver builds the request context for a principal.
type WorkspaceResolver interface {
	Resolve(ctx context.Context, p domain.Principal, selector string) (*domain.RequestContext, error)
	// Identify loads the principal's identity and memberships without picking
	// an active workspace. Used by management endpoints.
	Identify(ctx context.Context, p domain.Principal) (*domain.Actor, error)
	SetActiveWorkspace(ctx context.Context, p domain.Principal, selector string) (domain.Membership, error)
	ClearActiveWorkspace(ctx context.Context, p domain.Principal) error
}

// AuditRecorder records successful mutations without blocking the caller.
type AuditRecorder interface {
	Record(rc *domain.RequestContext, op domain.Operation, entityType, entityID, detail string)
	RecordFor(actor *domain.Actor, ws *domain.Workspace, op domain.Operation, entityType, entityID, detail string)
}

// CreateRecordInput is the DTO for RecordService.Create.
type CreateRecordInput struct {
	Type    domain.RecordType
	Title   string
	Content string
	Status  string
}

// RecordService runs business operations against the active workspace.
type RecordService interface {
	List(ctx context.Context, rc *domain.RequestContext, t domain.RecordType, limit int) ([]*domain.Record, error)
	Get(ctx context.Context, rc *domain.RequestContext, t domain.RecordType, id string) (*domain.Record, error)
	Create(ctx context.Context, rc *domain.RequestContext, in CreateRecordInput) (*domain.Record, error)
	Update(ctx context.Context, rc *domain.RequestContext, t domain.RecordType, id string, patch domain.RecordPatch) (*domain.Record, error)
	Delete(ctx context.Context, rc *domain.RequestContext, t domain.RecordType, id string) error
}

// CreateWorkspaceInput is the DTO for AdminService.CreateWorkspace.
type CreateWorkspaceInput struct {
	Name        string
	DisplayName string
}

// AdminService manages workspaces and memberships.
type AdminService interface {
	CreateWorkspace(ctx context.Context, actor *domain.Actor, in CreateWorkspaceInput) (*domain.Workspace, error)
	ListWorkspaces(ctx context.Context, actor *domain.Actor) ([]*domain.Workspace, error)
	SetArchived(ctx context.Context, actor *domain.Actor, workspaceID string, archived bool) (*domain.Workspace, error)
	ListMembers(ctx context.Context, actor *domain.Actor, workspaceID string) ([]domain.Member, error)
	AddMember(ctx context.Context, actor *domain.Actor, workspaceID, identityKey string, role domain.Role) (*domain.Member, error)
	ChangeRole(ctx context.Context, actor *domain.Actor, workspaceID, identityKey string, role domain.Role) error
	RemoveMember(ctx context.Context, actor *domain.Actor, workspaceID, identityKey string) error
	ListAudit(ctx context.Context, actor *domain.Actor, workspaceID string, limit int) ([]*domain.AuditEntry, error)
}

// IssueCredentialInput is the DTO for CredentialService.Issue.
type IssueCredentialInput struct {
	IdentityKey string
	Label       string
	ExpiresIn   time.Duration // zero means never
	CreatedBy   string
}

// CredentialService issues and revokes credentials.
type CredentialService interface {
	// Issue returns the raw secret once. Only its digest is stored.
	Issue(ctx context.Context, in IssueCredentialInput) (string, *domain.Credential, error)
	Revoke(ctx context.Context, id string) error
	List(ctx context.Context, identityKey string) ([]*domain.Credential, error)
}
