package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Credential is an issued secret. Only its digest is ever persisted.
type Credential struct {
	ID          string     `json:"id"`
	Digest      string     `json:"-"`
	IdentityKey string     `json:"identity_key"`
	Label       string     `json:"label,omitempty"`
	Active      bool       `json:"active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	CreatedBy   string     `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
}

// Digest returns the lower-case hex SHA-256 of a raw credential.
func Digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Check returns an AuthenticationFailure if the credential cannot be used at now.
func (c *Credential) Check(now time.Time) error {
	switch {
	case !c.Active:
		return Unauthenticated("credential inactive")
	case c.RevokedAt != nil && !c.RevokedAt.After(now):
		return Unauthenticated("credential revoked")
	case c.ExpiresAt != nil && !c.ExpiresAt.After(now):
		return Unauthenticated("credential expired")
	}
	return nil
}

// AccessMethod tags how a request presented its credential.
type AccessMethod string

const (
	AccessAPIKey AccessMethod = "api_key"
	AccessBearer AccessMethod = "bearer"
	AccessOAuth  AccessMethod = "oauth"
	AccessCLI    AccessMethod = "cli"
)

// Principal is a verified identity reference produced by authentication.
type Principal struct {
	Key          string
	CredentialID string
	Method       AccessMethod
}

// CredentialTouch asks for a credential's last-used time to be recorded.
type CredentialTouch struct {
	CredentialID string
	At           time.Time
}
