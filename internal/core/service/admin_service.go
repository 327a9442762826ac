package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meetingintel/recordkeeper/internal/core/domain"
	"github.com/meetingintel/recordkeeper/internal/core/ports"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 500
)

type adminService struct {
	workspaces ports.WorkspaceRepository
	dir        ports.DirectoryRepository
	auditLog   ports.AuditRepository
	audit      ports.AuditRecorder
	exec       *Executor
	prefix     string
	now        func() time.Time
	log        zerolog.Logger
}

// NewAdminService returns an AdminService. storePrefix is prepended to a new
// workspace's name to form its backing store identifier.
func NewAdminService(
	workspaces ports.WorkspaceRepository,
	dir ports.DirectoryRepository,
	auditLog ports.AuditRepository,
	audit ports.AuditRecorder,
	exec *Executor,
	storePrefix string,
	log zerolog.Logger,
) ports.AdminService {
	return &adminService{
		workspaces: workspaces,
		dir:        dir,
		auditLog:   auditLog,
		audit:      audit,
		exec:       exec,
		prefix:     storePrefix,
		now:        time.Now,
		log:        log.With().Str("component", "admin").Logger(),
	}
}

// findWorkspace accepts a workspace ID or name.
func (s *adminService) findWorkspace(ctx context.Context, ref string) (*domain.Workspace, error) {
	ws, err := Run(ctx, s.exec, "workspaces.find_by_id", func(ctx context.Context) (*domain.Workspace, error) {
		return s.workspaces.FindByID(ctx, ref)
	})
	if !errors.Is(err, domain.ErrWorkspaceNotFound) {
		return ws, err
	}
	return Run(ctx, s.exec, "workspaces.find_by_name", func(ctx context.Context) (*domain.Workspace, error) {
		return s.workspaces.FindByName(ctx, ref)
	})
}

// authorizedWorkspace loads ref and checks actor may perform op on it. For
// non-administrators a missing workspace is reported as a denial, so the
// response does not reveal which workspaces exist.
func (s *adminService) authorizedWorkspace(ctx context.Context, actor *domain.Actor, ref string, op domain.Operation) (*domain.Workspace, error) {
	ws, err := s.findWorkspace(ctx, ref)
	if errors.Is(err, domain.ErrWorkspaceNotFound) && (actor == nil || !actor.Identity.IsAdmin) {
		return nil, domain.Forbidden("workspace not found")
	}
	if err != nil {
		return nil, err
	}
	if err := AuthorizeManagement(actor, ws, op); err != nil {
		return nil, err
	}
	return ws, nil
}

func (s *adminService) CreateWorkspace(ctx context.Context, actor *domain.Actor, in ports.CreateWorkspaceInput) (*domain.Workspace, error) {
	if err := AuthorizeManagement(actor, nil, domain.OpManageWorkspace); err != nil {
		return nil, err
	}
	name := strings.ToLower(strings.TrimSpace(in.Name))
	if err := domain.ValidateWorkspaceName(name); err != nil {
		return nil, fmt.Errorf("%w: workspace name %q", err, in.Name)
	}
	display := strings.TrimSpace(in.DisplayName)
	if display == "" {
		display = name
	}

	ws := &domain.Workspace{
		ID:           uuid.NewString(),
		Name:         name,
		DisplayName:  display,
		BackingStore: domain.BackingStoreID(s.prefix + name),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.exec.Do(ctx, "workspaces.create", func(ctx context.Context) error {
		return s.workspaces.Create(ctx, ws)
	}); err != nil {
		return nil, err
	}

	s.log.Info().Str("workspace", name).Str("by", actor.Identity.Key).Msg("workspace created")
	s.audit.RecordFor(actor, ws, domain.OpManageWorkspace, "workspace", ws.ID, "created "+name)
	return ws, nil
}

// ListWorkspaces returns every workspace to administrators. Other identities
// see only the workspaces they are members of.
func (s *adminService) ListWorkspaces(ctx context.Context, actor *domain.Actor) ([]*domain.Workspace, error) {
	if actor == nil {
		return nil, domain.Forbidden("no actor")
	}
	all, err := Run(ctx, s.exec, "workspaces.list", s.workspaces.List)
	if err != nil || actor.Identity.IsAdmin {
		return all, err
	}
	own := make([]*domain.Workspace, 0, len(actor.Memberships))
	for _, ws := range all {
		if _, ok := actor.RoleIn(ws.ID); ok {
			own = append(own, ws)
		}
	}
	return own, nil
}

func (s *adminService) SetArchived(ctx context.Context, actor *domain.Actor, workspaceID string, archived bool) (*domain.Workspace, error) {
	if err := AuthorizeManagement(actor, nil, domain.OpManageWorkspace); err != nil {
		return nil, err
	}
	ws, err := s.findWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if ws.IsDefault && archived {
		return nil, fmt.Errorf("%w: the default workspace cannot be archived", domain.ErrInvalidInput)
	}
	if ws.IsArchived == archived {
		return ws, nil
	}
	if err := s.exec.Do(ctx, "workspaces.set_archived", func(ctx context.Context) error {
		return s.workspaces.SetArchived(ctx, ws.ID, archived)
	}); err != nil {
		return nil, err
	}
	ws.IsArchived = archived

	detail := "unarchived"
	if archived {
		detail = "archived"
	}
	s.audit.RecordFor(actor, ws, domain.OpManageWorkspace, "workspace", ws.ID, detail)
	return ws, nil
}

func (s *adminService) ListMembers(ctx context.Context, actor *domain.Actor, workspaceID string) ([]domain.Member, error) {
	ws, err := s.authorizedWorkspace(ctx, actor, workspaceID, domain.OpRead)
	if err != nil {
		return nil, err
	}
	return Run(ctx, s.exec, "memberships.list_members", func(ctx context.Context) ([]domain.Member, error) {
		return s.dir.ListMembers(ctx, ws.ID)
	})
}

func (s *adminService) AddMember(ctx context.Context, actor *domain.Actor, workspaceID, identityKey string, role domain.Role) (*domain.Member, error) {
	ws, err := s.authorizedWorkspace(ctx, actor, workspaceID, domain.OpManageMembers)
	if err != nil {
		return nil, err
	}
	key := domain.NormalizeKey(identityKey)
	if key == "" {
		return nil, fmt.Errorf("%w: identity key is required", domain.ErrInvalidInput)
	}

	ident, err := Run(ctx, s.exec, "identities.ensure", func(ctx context.Context) (*domain.Identity, error) {
		return s.dir.EnsureIdentity(ctx, key, actor.Identity.Key)
	})
	if err != nil {
		return nil, err
	}
	if err := s.exec.Do(ctx, "memberships.add", func(ctx context.Context) error {
		return s.dir.AddMembership(ctx, ident.ID, ws.ID, role, actor.Identity.Key)
	}); err != nil {
		return nil, err
	}

	s.audit.RecordFor(actor, ws, domain.OpManageMembers, "membership", ident.ID, fmt.Sprintf("added %s as %s", key, role))
	return &domain.Member{IdentityID: ident.ID, IdentityKey: key, DisplayName: ident.DisplayName, Role: role}, nil
}

func (s *adminService) ChangeRole(ctx context.Context, actor *domain.Actor, workspaceID, identityKey string, role domain.Role) error {
	ws, ident, err := s.memberTarget(ctx, actor, workspaceID, identityKey)
	if err != nil {
		return err
	}
	if err := s.exec.Do(ctx, "memberships.update_role", func(ctx context.Context) error {
		return s.dir.UpdateMembershipRole(ctx, ident.ID, ws.ID, role)
	}); err != nil {
		return err
	}

	s.audit.RecordFor(actor, ws, domain.OpManageMembers, "membership", ident.ID, fmt.Sprintf("changed %s to %s", ident.Key, role))
	return nil
}

func (s *adminService) RemoveMember(ctx context.Context, actor *domain.Actor, workspaceID, identityKey string) error {
	ws, ident, err := s.memberTarget(ctx, actor, workspaceID, identityKey)
	if err != nil {
		return err
	}
	if err := s.exec.Do(ctx, "memberships.remove", func(ctx context.Context) error {
		return s.dir.RemoveMembership(ctx, ident.ID, ws.ID)
	}); err != nil {
		return err
	}

	s.audit.RecordFor(actor, ws, domain.OpManageMembers, "membership", ident.ID, "removed "+ident.Key)
	return nil
}

func (s *adminService) memberTarget(ctx context.Context, actor *domain.Actor, workspaceID, identityKey string) (*domain.Workspace, *domain.Identity, error) {
	ws, err := s.authorizedWorkspace(ctx, actor, workspaceID, domain.OpManageMembers)
	if err != nil {
		return nil, nil, err
	}
	ident, err := Run(ctx, s.exec, "identities.find_by_key", func(ctx context.Context) (*domain.Identity, error) {
		return s.dir.FindIdentityByKey(ctx, domain.NormalizeKey(identityKey))
	})
	if err != nil {
		return nil, nil, err
	}
	return ws, ident, nil
}

func (s *adminService) ListAudit(ctx context.Context, actor *domain.Actor, workspaceID string, limit int) ([]*domain.AuditEntry, error) {
	ws, err := s.authorizedWorkspace(ctx, actor, workspaceID, domain.OpRead)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	return Run(ctx, s.exec, "audit.list", func(ctx context.Context) ([]*domain.AuditEntry, error) {
		return s.auditLog.ListByWorkspace(ctx, ws.ID, limit)
	})
}
