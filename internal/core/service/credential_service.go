package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meetingintel/recordkeeper/internal/core/domain"
	"github.com/meetingintel/recordkeeper/internal/core/ports"
)

// secretBytes is the entropy of an issued credential before encoding.
const secretBytes = 32

type credentialService struct {
	creds ports.CredentialRepository
	dir   ports.DirectoryRepository
	exec  *Executor
	now   func() time.Time
	log   zerolog.Logger
}

// NewCredentialService returns a CredentialService.
func NewCredentialService(creds ports.CredentialRepository, dir ports.DirectoryRepository, exec *Executor, log zerolog.Logger) ports.CredentialService {
	return &credentialService{
		creds: creds,
		dir:   dir,
		exec:  exec,
		now:   time.Now,
		log:   log.With().Str("component", "credentials").Logger(),
	}
}

func (s *credentialService) Issue(ctx context.Context, in ports.IssueCredentialInput) (string, *domain.Credential, error) {
	key := domain.NormalizeKey(in.IdentityKey)
	if key == "" {
		return "", nil, fmt.Errorf("%w: identity key is required", domain.ErrInvalidInput)
	}
	if in.ExpiresIn < 0 {
		return "", nil, fmt.Errorf("%w: expiry must not be negative", domain.ErrInvalidInput)
	}

	if _, err := Run(ctx, s.exec, "identities.ensure", func(ctx context.Context) (*domain.Identity, error) {
		return s.dir.EnsureIdentity(ctx, key, in.CreatedBy)
	}); err != nil {
		return "", nil, err
	}

	raw, err := newSecret()
	if err != nil {
		return "", nil, err
	}
	now := s.now().UTC()
	cred := &domain.Credential{
		ID:          uuid.NewString(),
		Digest:      domain.Digest(raw),
		IdentityKey: key,
		Label:       in.Label,
		Active:      true,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   now,
	}
	if in.ExpiresIn > 0 {
		exp := now.Add(in.ExpiresIn)
		cred.ExpiresAt = &exp
	}

	if err := s.exec.Do(ctx, "credentials.create", func(ctx context.Context) error {
		return s.creds.Create(ctx, cred)
	}); err != nil {
		return "", nil, err
	}

	s.log.Info().Str("credential_id", cred.ID).Str("identity", key).Msg("credential issued")
	return raw, cred, nil
}

func (s *credentialService) Revoke(ctx context.Context, id string) error {
	if err := s.exec.Do(ctx, "credentials.revoke", func(ctx context.Context) error {
		return s.creds.Revoke(ctx, id, s.now().UTC())
	}); err != nil {
		return err
	}
	s.log.Info().Str("credential_id", id).Msg("credential revoked")
	return nil
}

func (s *credentialService) List(ctx context.Context, identityKey string) ([]*domain.Credential, error) {
	return Run(ctx, s.exec, "credentials.list", func(ctx context.Context) ([]*domain.Credential, error) {
		return s.creds.List(ctx, domain.NormalizeKey(identityKey))
	})
}

func newSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
