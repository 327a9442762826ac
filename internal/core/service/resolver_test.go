package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/meetingintel/recordkeeper/internal/core/domain"
)

type resolverFixture struct {
	dir       *stubDirectory
	overrides *stubOverrides
	resolver  *Resolver
}

func newResolverFixture() *resolverFixture {
	dir := newStubDirectory()
	dir.addWorkspace(&domain.Workspace{ID: "w1", Name: "alpha", BackingStore: "rk_alpha"})
	dir.addWorkspace(&domain.Workspace{ID: "w2", Name: "beta", BackingStore: "rk_beta"})
	dir.addWorkspace(&domain.Workspace{ID: "w3", Name: "gamma", BackingStore: "rk_gamma", IsArchived: true})
	dir.addWorkspace(&domain.Workspace{ID: "w9", Name: "main", BackingStore: "rk_main", IsDefault: true})
	overrides := newStubOverrides()
	return &resolverFixture{
		dir:       dir,
		overrides: overrides,
		resolver:  NewResolver(dir, overrides, fastExecutor(), zerolog.Nop()),
	}
}

func principal(key string) domain.Principal {
	return domain.Principal{Key: key, CredentialID: "c-" + key, Method: domain.AccessAPIKey}
}

func TestResolve_SingleMembershipNoSelector(t *testing.T) {
	f := newResolverFixture()
	f.dir.addIdentity("u1", "u1@example.com", false, "")
	f.dir.grant("u1", "w1", domain.RoleChair)

	rc, err := f.resolver.Resolve(context.Background(), principal("u1@example.com"), "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if rc.Active().WorkspaceID != "w1" || rc.Active().Role != domain.RoleChair {
		t.Fatalf("unexpected active membership %+v", rc.Active())
	}
	if rc.Active().BackingStore != "rk_alpha" {
		t.Fatalf("expected backing store to be carried, got %q", rc.Active().BackingStore)
	}
}

func TestResolve_Precedence(t *testing.T) {
	f := newResolverFixture()
	f.dir.addIdentity("u1", "u1@example.com", false, "w2")
	f.dir.grant("u1", "w2", domain.RoleMember)
	f.dir.grant("u1", "w1", domain.RoleViewer)
	f.dir.grant("u1", "w9", domain.RoleViewer)
	ctx := context.Background()
	p := principal("u1@example.com")

	// identity default beats stable order
	rc, err := f.resolver.Resolve(ctx, p, "")
	if err != nil || rc.Active().WorkspaceID != "w2" {
		t.Fatalf("expected identity default w2, got %+v (%v)", rc, err)
	}

	// override beats identity default
	f.overrides.m["u1"] = "w1"
	rc, err = f.resolver.Resolve(ctx, p, "")
	if err != nil || rc.Active().WorkspaceID != "w1" {
		t.Fatalf("expected override w1, got %v", err)
	}

	// selector by name beats override
	rc, err = f.resolver.Resolve(ctx, p, "main")
	if err != nil || rc.Active().WorkspaceID != "w9" {
		t.Fatalf("expected selector main/w9, got %v", err)
	}
}

func TestResolve_StableOrderPutsDeploymentDefaultFirst(t *testing.T) {
	f := newResolverFixture()
	f.dir.addIdentity("u1", "u1@example.com", false, "")
	f.dir.grant("u1", "w2", domain.RoleMember)
	f.dir.grant("u1", "w9", domain.RoleMember)
	f.dir.grant("u1", "w1", domain.RoleMember)

	rc, err := f.resolver.Resolve(context.Background(), principal("u1@example.com"), "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if rc.Active().WorkspaceID != "w9" {
		t.Fatalf("expected deployment default first, got %s", rc.Active().WorkspaceID)
	}
	ms := rc.Memberships()
	if ms[0].WorkspaceID != "w9" || ms[1].WorkspaceID != "w1" || ms[2].WorkspaceID != "w2" {
		t.Fatalf("unexpected order %+v", ms)
	}
}

func TestResolve_SelectorForNonMemberDenied(t *testing.T) {
	f := newResolverFixture()
	f.dir.addIdentity("u1", "u1@example.com", true, "")
	f.dir.grant("u1", "w1", domain.RoleChair)

	_, err := f.resolver.Resolve(context.Background(), principal("u1@example.com"), "w2")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden even for admin, got %v", err)
	}
}

func TestResolve_AdminWithoutMembershipsDenied(t *testing.T) {
	f := newResolverFixture()
	f.dir.addIdentity("adm", "admin@example.com", true, "")

	rc, err := f.resolver.Resolve(context.Background(), principal("admin@example.com"), "w1")
	if !errors.Is(err, domain.ErrForbidden) || rc != nil {
		t.Fatalf("expected denial and no context, got %+v (%v)", rc, err)
	}
	if _, err := f.resolver.Resolve(context.Background(), principal("admin@example.com"), ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected denial without selector, got %v", err)
	}
}

func TestResolve_UnknownIdentityDenied(t *testing.T) {
	f := newResolverFixture()
	_, err := f.resolver.Resolve(context.Background(), principal("ghost@example.com"), "")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestResolve_ControlStoreUnreachableFailsClosed(t *testing.T) {
	f := newResolverFixture()
	f.dir.addIdentity("adm", "admin@example.com", true, "")
	f.dir.grant("adm", "w1", domain.RoleChair)
	f.dir.err = errors.New("dial tcp: connection refused")

	for i := 0; i < 5; i++ {
		rc, err := f.resolver.Resolve(context.Background(), principal("admin@example.com"), "")
		if !errors.Is(err, domain.ErrControlStoreUnavailable) {
			t.Fatalf("expected ErrControlStoreUnavailable, got %v", err)
		}
		if rc != nil {
			t.Fatalf("no context may be built during an outage")
		}
	}
}

func TestResolve_OverrideStoreFailureFailsClosed(t *testing.T) {
	f := newResolverFixture()
	f.dir.addIdentity("u1", "u1@example.com", false, "")
	f.dir.grant("u1", "w1", domain.RoleMember)
	f.overrides.err = errors.New("redis down")

	if _, err := f.resolver.Resolve(context.Background(), principal("u1@example.com"), ""); !errors.Is(err, domain.ErrControlStoreUnavailable) {
		t.Fatalf("expected ErrControlStoreUnavailable, got %v", err)
	}
}

func TestResolve_StaleOverrideCleared(t *testing.T) {
	f := newResolverFixture()
	f.dir.addIdentity("u1", "u1@example.com", false, "")
	f.dir.grant("u1", "w1", domain.RoleMember)
	f.overrides.m["u1"] = "w2"

	rc, err := f.resolver.Resolve(context.Background(), principal("u1@example.com"), "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if rc.Active().WorkspaceID != "w1" {
		t.Fatalf("expected fallback to w1, got %s", rc.Active().WorkspaceID)
	}
	if _, ok := f.overrides.m["u1"]; ok {
		t.Fatalf("expected stale override to be cleared")
	}
}

func TestResolve_ArchivedWorkspaceStillResolves(t *testing.T) {
	f := newResolverFixture()
	f.dir.addIdentity("u1", "u1@example.com", false, "")
	f.dir.grant("u1", "w3", domain.RoleChair)

	rc, err := f.resolver.Resolve(context.Background(), principal("u1@example.com"), "gamma")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !rc.Active().IsArchived {
		t.Fatalf("expected archived flag on active membership")
	}
}

func TestResolve_ContextIsACopy(t *testing.T) {
	f := newResolverFixture()
	f.dir.addIdentity("u1", "u1@example.com", false, "")
	f.dir.grant("u1", "w1", domain.RoleViewer)

	rc, err := f.resolver.Resolve(context.Background(), principal("u1@example.com"), "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	ms := rc.Memberships()
	ms[0].Role = domain.RoleChair
	if rc.Memberships()[0].Role != domain.RoleViewer {
		t.Fatalf("mutating the returned slice changed the context")
	}
}

func TestSetActiveWorkspace(t *testing.T) {
	f := newResolverFixture()
	f.dir.addIdentity("u1", "u1@example.com", false, "")
	f.dir.grant("u1", "w1", domain.RoleMember)
	f.dir.grant("u1", "w2", domain.RoleViewer)
	ctx := context.Background()
	p := principal("u1@example.com")

	m, err := f.resolver.SetActiveWorkspace(ctx, p, "beta")
	if err != nil || m.WorkspaceID != "w2" {
		t.Fatalf("expected switch to w2, got %+v (%v)", m, err)
	}
	if f.overrides.m["u1"] != "w2" {
		t.Fatalf("expected override stored by workspace ID")
	}

	rc, _ := f.resolver.Resolve(ctx, p, "")
	if rc.Active().WorkspaceID != "w2" {
		t.Fatalf("expected override to apply, got %s", rc.Active().WorkspaceID)
	}

	if _, err := f.resolver.SetActiveWorkspace(ctx, p, "gamma"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected switch to non-member workspace denied, got %v", err)
	}
	if f.overrides.m["u1"] != "w2" {
		t.Fatalf("denied switch must not change the override")
	}

	if err := f.resolver.ClearActiveWorkspace(ctx, p); err != nil {
		t.Fatalf("clear: %v", err)
	}
	rc, _ = f.resolver.Resolve(ctx, p, "")
	if rc.Active().WorkspaceID != "w1" {
		t.Fatalf("expected stable-order fallback after clear, got %s", rc.Active().WorkspaceID)
	}
}
