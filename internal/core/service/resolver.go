package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/meetingintel/recordkeeper/internal/core/domain"
	"github.com/meetingintel/recordkeeper/internal/core/ports"
	"github.com/meetingintel/recordkeeper/internal/pkg/metrics"
)

// Resolver builds the RequestContext for an authenticated principal.
//
// It fails closed: an unknown identity, an identity without memberships, or
// an unreachable control store all end the request. There is no fallback
// context of any kind.
type Resolver struct {
	dir       ports.DirectoryRepository
	overrides ports.OverrideStore
	exec      *Executor
	log       zerolog.Logger
}

// NewResolver returns a Resolver.
func NewResolver(dir ports.DirectoryRepository, overrides ports.OverrideStore, exec *Executor, log zerolog.Logger) *Resolver {
	return &Resolver{
		dir:       dir,
		overrides: overrides,
		exec:      exec,
		log:       log.With().Str("component", "resolver").Logger(),
	}
}

// Identify loads the principal's identity and memberships. Zero memberships
// is not an error here; management endpoints decide on their own.
func (r *Resolver) Identify(ctx context.Context, p domain.Principal) (*domain.Actor, error) {
	ident, err := Run(ctx, r.exec, "identities.find_by_key", func(ctx context.Context) (*domain.Identity, error) {
		return r.dir.FindIdentityByKey(ctx, domain.NormalizeKey(p.Key))
	})
	if errors.Is(err, domain.ErrIdentityNotFound) {
		return nil, domain.Forbidden("unknown identity")
	}
	if err != nil {
		return nil, r.storeFailure("identity lookup", err)
	}

	memberships, err := Run(ctx, r.exec, "memberships.list", func(ctx context.Context) ([]domain.Membership, error) {
		return r.dir.ListMemberships(ctx, ident.ID)
	})
	if err != nil {
		return nil, r.storeFailure("membership lookup", err)
	}
	sortMemberships(memberships)

	return &domain.Actor{Identity: *ident, Memberships: memberships, Method: p.Method}, nil
}

// Resolve picks the active workspace. First match wins:
//  1. selector (workspace ID or name) supplied with the request
//  2. the identity's session override
//  3. the identity's default workspace
//  4. the first membership in stable order
func (r *Resolver) Resolve(ctx context.Context, p domain.Principal, selector string) (*domain.RequestContext, error) {
	actor, err := r.Identify(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(actor.Memberships) == 0 {
		return nil, domain.Forbidden("identity has no memberships")
	}

	active, err := r.selectActive(ctx, actor, strings.TrimSpace(selector))
	if err != nil {
		return nil, err
	}
	return domain.NewRequestContext(actor.Identity, actor.Memberships, active, p.Method), nil
}

func (r *Resolver) selectActive(ctx context.Context, actor *domain.Actor, selector string) (domain.Membership, error) {
	if selector != "" {
		if m, ok := findMembership(actor.Memberships, selector); ok {
			return m, nil
		}
		return domain.Membership{}, domain.Forbidden("not a member of selected workspace")
	}

	identityID := actor.Identity.ID
	override, ok, err := r.overrides.Get(ctx, identityID)
	if err != nil {
		return domain.Membership{}, r.storeFailure("override lookup", err)
	}
	if ok {
		if m, found := findMembership(actor.Memberships, override); found {
			return m, nil
		}
		r.log.Info().
			Str("identity_id", identityID).
			Str("workspace_id", override).
			Msg("clearing stale workspace override")
		if err := r.overrides.Clear(ctx, identityID); err != nil {
			r.log.Warn().Err(err).Str("identity_id", identityID).Msg("failed to clear stale override")
		}
	}

	if m, found := findMembership(actor.Memberships, actor.Identity.DefaultWorkspaceID); found {
		return m, nil
	}
	return actor.Memberships[0], nil
}

// SetActiveWorkspace records selector as the principal's override after
// checking the principal is a member of it.
func (r *Resolver) SetActiveWorkspace(ctx context.Context, p domain.Principal, selector string) (domain.Membership, error) {
	actor, err := r.Identify(ctx, p)
	if err != nil {
		return domain.Membership{}, err
	}
	m, ok := findMembership(actor.Memberships, strings.TrimSpace(selector))
	if !ok {
		return domain.Membership{}, domain.Forbidden("not a member of requested workspace")
	}
	if err := r.overrides.Set(ctx, actor.Identity.ID, m.WorkspaceID); err != nil {
		return domain.Membership{}, r.storeFailure("override store", err)
	}
	return m, nil
}

// ClearActiveWorkspace removes the principal's override, if any.
func (r *Resolver) ClearActiveWorkspace(ctx context.Context, p domain.Principal) error {
	actor, err := r.Identify(ctx, p)
	if err != nil {
		return err
	}
	if err := r.overrides.Clear(ctx, actor.Identity.ID); err != nil {
		return r.storeFailure("override store", err)
	}
	return nil
}

func (r *Resolver) storeFailure(stage string, err error) error {
	metrics.ControlStoreFailuresTotal.Inc()
	r.log.Error().Err(err).Str("stage", stage).Msg("control store unavailable, rejecting request")
	return fmt.Errorf("%s: %w: %w", stage, domain.ErrControlStoreUnavailable, err)
}

func findMembership(ms []domain.Membership, selector string) (domain.Membership, bool) {
	for _, m := range ms {
		if m.Matches(selector) {
			return m, true
		}
	}
	return domain.Membership{}, false
}

// sortMemberships orders the deployment default first, then by workspace ID.
func sortMemberships(ms []domain.Membership) {
	slices.SortStableFunc(ms, func(a, b domain.Membership) int {
		if a.IsDefault != b.IsDefault {
			if a.IsDefault {
				return -1
			}
			return 1
		}
		return strings.Compare(a.WorkspaceID, b.WorkspaceID)
	})
}
