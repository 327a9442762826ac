package ports

import (
	"context"
	"time"

	"github.com/meetingintel/recordkeeper/internal/core/domain"
)

// CredentialRepository persists credential digests. Raw secrets never reach it.
type CredentialRepository interface {
	// FindByDigest returns domain.ErrCredentialNotFound when no row matches.
	FindByDigest(ctx context.Context, digest string) (*domain.Credential, error)
	Create(ctx context.Context, cred *domain.Credential) error
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
	Revoke(ctx context.Context, id string, at time.Time) error
	// List returns every credential, or only those of identityKey when it is non-empty.
	List(ctx context.Context, identityKey string) ([]*domain.Credential, error)
}

// DirectoryRepository covers identities and their workspace memberships.
type DirectoryRepository interface {
	// FindIdentityByKey returns domain.ErrIdentityNotFound for unknown keys.
	FindIdentityByKey(ctx context.Context, key string) (*domain.Identity, error)
	// EnsureIdentity returns the identity for key, creating a non-admin one if missing.
	EnsureIdentity(ctx context.Context, key, createdBy string) (*domain.Identity, error)
	SetAdmin(ctx context.Context, identityID string, admin bool) error
	// ListMemberships returns the identity's memberships joined with their
	// workspace attributes. Order is unspecified.
	ListMemberships(ctx context.Context, identityID string) ([]domain.Membership, error)
	ListMembers(ctx context.Context, workspaceID string) ([]domain.Member, error)
	AddMembership(ctx context.Context, identityID, workspaceID string, role domain.Role, addedBy string) error
	UpdateMembershipRole(ctx context.Context, identityID, workspaceID string, role domain.Role) error
	RemoveMembership(ctx context.Context, identityID, workspaceID string) error
}

// WorkspaceRepository persists workspace metadata. Workspaces are never deleted.
type WorkspaceRepository interface {
	Create(ctx context.Context, ws *domain.Workspace) error
	FindByID(ctx context.Context, id string) (*domain.Workspace, error)
	FindByName(ctx context.Context, name string) (*domain.Workspace, error)
	List(ctx context.Context) ([]*domain.Workspace, error)
	SetArchived(ctx context.Context, id string, archived bool) error
}

// AuditRepository is the append-only audit log.
type AuditRepository interface {
	Insert(ctx context.Context, entry *domain.AuditEntry) error
	ListByWorkspace(ctx context.Context, workspaceID string, limit int) ([]*domain.AuditEntry, error)
}

// OverrideStore keeps the per-identity "active workspace" chosen by an
// explicit switch. Get reports ok=false when nothing is stored.
type OverrideStore interface {
	Get(ctx context.Context, identityID string) (workspaceID string, ok bool, err error)
	Set(ctx context.Context, identityID, workspaceID string) error
	Clear(ctx context.Context, identityID string) error
}
