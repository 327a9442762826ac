package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"

	"github.com/meetingintel/recordkeeper/internal/core/domain"
	"github.com/meetingintel/recordkeeper/internal/core/ports"
	"github.com/meetingintel/recordkeeper/internal/pkg/metrics"
)

const (
	defaultCacheSize = 1024
	defaultCacheTTL  = 5 * time.Minute
)

// TouchSink accepts last-used updates without blocking.
type TouchSink interface {
	TryEnqueue(t domain.CredentialTouch) bool
}

// AuthenticatorConfig tunes a TokenAuthenticator. Zero values use defaults.
type AuthenticatorConfig struct {
	CacheSize int
	CacheTTL  time.Duration
	// OAuthSecret and OAuthIssuer enable HS256 bearer tokens issued by the
	// OAuth flow. Tokens must name OAuthIssuer as both issuer and audience.
	// If either is empty every credential is treated as an opaque token.
	OAuthSecret string
	OAuthIssuer string
	// Now overrides the clock. Tests only.
	Now func() time.Time
}

type cacheEntry struct {
	principal domain.Principal
	until     time.Time
}

// TokenAuthenticator verifies opaque credentials against their stored digest.
//
// Successful lookups are cached by digest for CacheTTL. A credential revoked
// while cached keeps authenticating until its entry expires, so revocation
// takes effect within one TTL. This lag is accepted in exchange for keeping
// the control store off the hot path.
type TokenAuthenticator struct {
	creds  ports.CredentialRepository
	exec   *Executor
	touch  TouchSink
	cache  *expirable.LRU[string, cacheEntry]
	ttl    time.Duration
	secret []byte
	issuer string
	now    func() time.Time
	log    zerolog.Logger
}

// NewTokenAuthenticator returns a TokenAuthenticator. touch may be nil.
func NewTokenAuthenticator(creds ports.CredentialRepository, exec *Executor, touch TouchSink, cfg AuthenticatorConfig, log zerolog.Logger) *TokenAuthenticator {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	var secret []byte
	if cfg.OAuthSecret != "" && cfg.OAuthIssuer != "" {
		secret = []byte(cfg.OAuthSecret)
	}
	return &TokenAuthenticator{
		creds:  creds,
		exec:   exec,
		touch:  touch,
		cache:  expirable.NewLRU[string, cacheEntry](cfg.CacheSize, nil, cfg.CacheTTL),
		ttl:    cfg.CacheTTL,
		secret: secret,
		issuer: cfg.OAuthIssuer,
		now:    cfg.Now,
		log:    log.With().Str("component", "authenticator").Logger(),
	}
}

// Authenticate resolves raw to a principal. Unknown, inactive, revoked and
// expired credentials yield an AuthenticationFailure; an unreachable control
// store yields domain.ErrControlStoreUnavailable.
func (a *TokenAuthenticator) Authenticate(ctx context.Context, raw string) (domain.Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Principal{}, domain.Unauthenticated("empty credential")
	}
	if a.secret != nil && strings.Count(raw, ".") == 2 {
		return a.authenticateOAuth(raw)
	}

	digest := domain.Digest(raw)
	now := a.now()

	if e, ok := a.cache.Get(digest); ok {
		if now.Before(e.until) {
			metrics.AuthTotal.WithLabelValues("ok", "cache").Inc()
			return e.principal, nil
		}
		a.cache.Remove(digest)
	}

	cred, err := Run(ctx, a.exec, "credentials.find_by_digest", func(ctx context.Context) (*domain.Credential, error) {
		return a.creds.FindByDigest(ctx, digest)
	})
	if errors.Is(err, domain.ErrCredentialNotFound) {
		metrics.AuthTotal.WithLabelValues("denied", "store").Inc()
		return domain.Principal{}, domain.Unauthenticated("unknown credential")
	}
	if err != nil {
		metrics.AuthTotal.WithLabelValues("unavailable", "store").Inc()
		metrics.ControlStoreFailuresTotal.Inc()
		a.log.Error().Err(err).Msg("credential lookup failed, rejecting request")
		return domain.Principal{}, fmt.Errorf("%w: %w", domain.ErrControlStoreUnavailable, err)
	}
	if err := cred.Check(now); err != nil {
		a.cache.Remove(digest)
		metrics.AuthTotal.WithLabelValues("denied", "store").Inc()
		return domain.Principal{}, err
	}

	p := domain.Principal{
		Key:          domain.NormalizeKey(cred.IdentityKey),
		CredentialID: cred.ID,
		Method:       domain.AccessAPIKey,
	}
	until := now.Add(a.ttl)
	if cred.ExpiresAt != nil && cred.ExpiresAt.Before(until) {
		until = *cred.ExpiresAt
	}
	a.cache.Add(digest, cacheEntry{principal: p, until: until})
	metrics.AuthTotal.WithLabelValues("ok", "store").Inc()

	if a.touch != nil && !a.touch.TryEnqueue(domain.CredentialTouch{CredentialID: cred.ID, At: now}) {
		a.log.Debug().Str("credential_id", cred.ID).Msg("last-used update dropped")
	}
	return p, nil
}

// oauthClaims are the claims of tokens minted by the OAuth flow. Type is
// "refresh" for refresh tokens, which never grant access.
type oauthClaims struct {
	Type string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

const refreshTokenType = "refresh"

func (a *TokenAuthenticator) authenticateOAuth(raw string) (domain.Principal, error) {
	claims := oauthClaims{}
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return a.secret, nil
	},
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(a.issuer),
		jwt.WithAudience(a.issuer),
	)
	switch {
	case err != nil || !tkn.Valid || claims.Subject == "":
		metrics.AuthTotal.WithLabelValues("denied", "oauth").Inc()
		return domain.Principal{}, domain.Unauthenticated("invalid oauth token")
	case claims.Type == refreshTokenType:
		metrics.AuthTotal.WithLabelValues("denied", "oauth").Inc()
		return domain.Principal{}, domain.Unauthenticated("refresh token presented as access token")
	}
	metrics.AuthTotal.WithLabelValues("ok", "oauth").Inc()
	return domain.Principal{
		Key:          domain.NormalizeKey(claims.Subject),
		CredentialID: claims.ID,
		Method:       domain.AccessOAuth,
	}, nil
}

// TouchThrottle limits how often one credential's last-used time is written.
type TouchThrottle interface {
	Allow(ctx context.Context, credentialID string) (bool, error)
}

// NewTouchHandler returns the queue handler that records credential use.
// throttle may be nil. Failures are logged only.
func NewTouchHandler(creds ports.CredentialRepository, exec *Executor, throttle TouchThrottle, log zerolog.Logger) func(ctx context.Context, t domain.CredentialTouch) error {
	log = log.With().Str("component", "credential_touch").Logger()
	return func(ctx context.Context, t domain.CredentialTouch) error {
		if throttle != nil {
			ok, err := throttle.Allow(ctx, t.CredentialID)
			if err != nil {
				log.Debug().Err(err).Msg("touch throttle unavailable, writing anyway")
			} else if !ok {
				return nil
			}
		}
		err := exec.Do(ctx, "credentials.touch", func(ctx context.Context) error {
			return creds.TouchLastUsed(ctx, t.CredentialID, t.At)
		})
		if err != nil {
			log.Warn().Err(err).Str("credential_id", t.CredentialID).Msg("last-used update failed")
		}
		return nil
	}
}
