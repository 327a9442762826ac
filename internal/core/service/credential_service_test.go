package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/meetingintel/recordkeeper/internal/core/domain"
	"github.com/meetingintel/recordkeeper/internal/core/ports"
)

func TestCredentialService_IssueThenAuthenticate(t *testing.T) {
	creds := newStubCredentialRepo()
	dir := newStubDirectory()
	svc := NewCredentialService(creds, dir, fastExecutor(), zerolog.Nop())

	raw, cred, err := svc.Issue(context.Background(), ports.IssueCredentialInput{
		IdentityKey: " New.User@Example.com ",
		Label:       "laptop",
		ExpiresIn:   24 * time.Hour,
		CreatedBy:   "cli-admin",
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(raw) < 40 {
		t.Fatalf("expected a long random secret, got %q", raw)
	}
	if cred.Digest != domain.Digest(raw) || cred.Digest == raw {
		t.Fatalf("expected only the digest to be stored")
	}
	if cred.ExpiresAt == nil {
		t.Fatalf("expected expiry to be set")
	}
	if _, ok := dir.identities["new.user@example.com"]; !ok {
		t.Fatalf("expected identity to be created")
	}

	auth := newTestAuthenticator(creds, &fakeClock{now: time.Now()}, nil, "")
	p, err := auth.Authenticate(context.Background(), raw)
	if err != nil {
		t.Fatalf("authenticate issued credential: %v", err)
	}
	if p.Key != "new.user@example.com" || p.CredentialID != cred.ID {
		t.Fatalf("unexpected principal %+v", p)
	}
}

func TestCredentialService_IssueRejectsEmptyKey(t *testing.T) {
	svc := NewCredentialService(newStubCredentialRepo(), newStubDirectory(), fastExecutor(), zerolog.Nop())
	if _, _, err := svc.Issue(context.Background(), ports.IssueCredentialInput{IdentityKey: " "}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCredentialService_RevokeAndList(t *testing.T) {
	creds := newStubCredentialRepo()
	svc := NewCredentialService(creds, newStubDirectory(), fastExecutor(), zerolog.Nop())
	ctx := context.Background()

	_, cred, err := svc.Issue(ctx, ports.IssueCredentialInput{IdentityKey: "u@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := svc.Revoke(ctx, cred.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := svc.Revoke(ctx, "missing"); !errors.Is(err, domain.ErrCredentialNotFound) {
		t.Fatalf("expected ErrCredentialNotFound, got %v", err)
	}

	list, err := svc.List(ctx, "U@example.com")
	if err != nil || len(list) != 1 || list[0].RevokedAt == nil {
		t.Fatalf("expected one revoked credential, got %+v (%v)", list, err)
	}
}
