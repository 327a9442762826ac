package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/meetingintel/recordkeeper/internal/core/domain"
	"github.com/meetingintel/recordkeeper/internal/core/ports"
)

type adminFixture struct {
	dir   *stubDirectory
	log   *stubAuditRepo
	sink  *recordingAudit
	svc   ports.AdminService
	admin *domain.Actor
	chair *domain.Actor
	plain *domain.Actor
}

func newAdminFixture() *adminFixture {
	dir := newStubDirectory()
	dir.addWorkspace(&domain.Workspace{ID: "w1", Name: "alpha", BackingStore: "rk_alpha"})
	dir.addWorkspace(&domain.Workspace{ID: "w3", Name: "gamma", BackingStore: "rk_gamma", IsArchived: true})
	dir.addWorkspace(&domain.Workspace{ID: "w9", Name: "main", BackingStore: "rk_main", IsDefault: true})
	dir.addIdentity("adm", "admin@example.com", true, "")
	dir.addIdentity("ch", "chair@example.com", false, "")
	dir.addIdentity("pl", "plain@example.com", false, "")
	dir.grant("ch", "w1", domain.RoleChair)
	dir.grant("pl", "w1", domain.RoleMember)

	auditRepo := &stubAuditRepo{}
	sink := &recordingAudit{}
	svc := NewAdminService(&stubWorkspaceRepo{dir: dir}, dir, auditRepo, NewAuditRecorder(sink, zerolog.Nop()), fastExecutor(), "rk_", zerolog.Nop())

	return &adminFixture{
		dir:   dir,
		log:   auditRepo,
		sink:  sink,
		svc:   svc,
		admin: &domain.Actor{Identity: domain.Identity{ID: "adm", Key: "admin@example.com", IsAdmin: true}},
		chair: &domain.Actor{
			Identity:    domain.Identity{ID: "ch", Key: "chair@example.com"},
			Memberships: []domain.Membership{{WorkspaceID: "w1", Role: domain.RoleChair}},
		},
		plain: &domain.Actor{
			Identity:    domain.Identity{ID: "pl", Key: "plain@example.com"},
			Memberships: []domain.Membership{{WorkspaceID: "w1", Role: domain.RoleMember}},
		},
	}
}

func TestAdminService_CreateWorkspace(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()

	ws, err := f.svc.CreateWorkspace(ctx, f.admin, ports.CreateWorkspaceInput{Name: "Board-2026", DisplayName: "Board"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ws.Name != "board-2026" || ws.BackingStore != "rk_board-2026" {
		t.Fatalf("unexpected workspace %+v", ws)
	}
	if len(f.sink.all()) != 1 {
		t.Fatalf("expected creation to be audited")
	}

	if _, err := f.svc.CreateWorkspace(ctx, f.admin, ports.CreateWorkspaceInput{Name: "board-2026"}); !errors.Is(err, domain.ErrWorkspaceExists) {
		t.Fatalf("expected ErrWorkspaceExists, got %v", err)
	}
	if _, err := f.svc.CreateWorkspace(ctx, f.chair, ports.CreateWorkspaceInput{Name: "other"}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected chair to be denied, got %v", err)
	}
}

func TestAdminService_CreateWorkspaceValidatesName(t *testing.T) {
	f := newAdminFixture()
	for _, name := range []string{"", "a", "-bad", "bad-", "has space", "admin", "mcp", "default"} {
		if _, err := f.svc.CreateWorkspace(context.Background(), f.admin, ports.CreateWorkspaceInput{Name: name}); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("name %q: expected ErrInvalidInput, got %v", name, err)
		}
	}
}

func TestAdminService_ListWorkspacesScopedToCaller(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()

	all, err := f.svc.ListWorkspaces(ctx, f.admin)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected administrator to see every workspace, got %d (%v)", len(all), err)
	}

	own, err := f.svc.ListWorkspaces(ctx, f.plain)
	if err != nil {
		t.Fatalf("list for member: %v", err)
	}
	if len(own) != 1 || own[0].ID != "w1" {
		t.Fatalf("expected only w1 for a member, got %+v", own)
	}

	none, err := f.svc.ListWorkspaces(ctx, &domain.Actor{Identity: domain.Identity{ID: "x", Key: "nobody@example.com"}})
	if err != nil || none == nil || len(none) != 0 {
		t.Fatalf("expected empty list for an identity without memberships, got %v (%v)", none, err)
	}

	if _, err := f.svc.ListWorkspaces(ctx, nil); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected nil actor denied, got %v", err)
	}
}

func TestAdminService_ArchiveToggle(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()

	ws, err := f.svc.SetArchived(ctx, f.admin, "alpha", true)
	if err != nil || !ws.IsArchived {
		t.Fatalf("expected archived, got %+v (%v)", ws, err)
	}
	ws, err = f.svc.SetArchived(ctx, f.admin, "w1", false)
	if err != nil || ws.IsArchived {
		t.Fatalf("expected unarchived, got %+v (%v)", ws, err)
	}
	if _, err := f.svc.SetArchived(ctx, f.admin, "w9", true); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected default workspace archive refused, got %v", err)
	}
	if _, err := f.svc.SetArchived(ctx, f.chair, "w1", true); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected chair denied, got %v", err)
	}
	if len(f.sink.all()) != 2 {
		t.Fatalf("expected two audit entries, got %d", len(f.sink.all()))
	}
}

func TestAdminService_MemberManagement(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()

	m, err := f.svc.AddMember(ctx, f.chair, "w1", "New@Example.com", domain.RoleViewer)
	if err != nil {
		t.Fatalf("chair add member: %v", err)
	}
	if m.IdentityKey != "new@example.com" || m.Role != domain.RoleViewer {
		t.Fatalf("unexpected member %+v", m)
	}
	if _, err := f.svc.AddMember(ctx, f.chair, "w1", "new@example.com", domain.RoleMember); !errors.Is(err, domain.ErrMembershipExists) {
		t.Fatalf("expected ErrMembershipExists, got %v", err)
	}
	if err := f.svc.ChangeRole(ctx, f.admin, "alpha", "new@example.com", domain.RoleMember); err != nil {
		t.Fatalf("admin change role: %v", err)
	}
	if _, err := f.svc.AddMember(ctx, f.plain, "w1", "x@example.com", domain.RoleViewer); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected member to be denied, got %v", err)
	}
	if err := f.svc.RemoveMember(ctx, f.chair, "w1", "new@example.com"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := f.svc.RemoveMember(ctx, f.chair, "w1", "new@example.com"); !errors.Is(err, domain.ErrMembershipNotFound) {
		t.Fatalf("expected ErrMembershipNotFound, got %v", err)
	}

	members, err := f.svc.ListMembers(ctx, f.chair, "w1")
	if err != nil || len(members) != 2 {
		t.Fatalf("expected chair and plain, got %+v (%v)", members, err)
	}
	if n := len(f.sink.all()); n != 3 {
		t.Fatalf("expected 3 audit entries, got %d", n)
	}
}

func TestAdminService_ArchivedWorkspaceMembersFrozen(t *testing.T) {
	f := newAdminFixture()
	if _, err := f.svc.AddMember(context.Background(), f.admin, "w3", "x@example.com", domain.RoleViewer); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected denial on archived workspace, got %v", err)
	}
	if _, err := f.svc.ListMembers(context.Background(), f.admin, "w3"); err != nil {
		t.Fatalf("expected listing to stay available, got %v", err)
	}
}

func TestAdminService_UnknownWorkspaceHiddenFromNonAdmins(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()

	if _, err := f.svc.ListMembers(ctx, f.chair, "nope"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-admin, got %v", err)
	}
	if _, err := f.svc.ListMembers(ctx, f.admin, "nope"); !errors.Is(err, domain.ErrWorkspaceNotFound) {
		t.Fatalf("expected ErrWorkspaceNotFound for admin, got %v", err)
	}
}

func TestAdminService_ListAudit(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()
	f.log.inserted = []*domain.AuditEntry{
		{ID: "a1", WorkspaceID: "w1"},
		{ID: "a2", WorkspaceID: "w9"},
	}

	entries, err := f.svc.ListAudit(ctx, f.chair, "w1", 0)
	if err != nil || len(entries) != 1 || entries[0].ID != "a1" {
		t.Fatalf("expected one w1 entry, got %+v (%v)", entries, err)
	}
	if _, err := f.svc.ListAudit(ctx, f.plain, "w1", 0); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected member denied, got %v", err)
	}
}
