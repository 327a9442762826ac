// Package tenant holds the connection registry: one lazily built, shared
// pool per backing store.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/meetingintel/recordkeeper/internal/core/domain"
	"github.com/meetingintel/recordkeeper/internal/core/ports"
	"github.com/meetingintel/recordkeeper/internal/pkg/metrics"
)

const defaultOpenTimeout = 10 * time.Second

// Registry memoizes tenant pools by backing store.
//
// Lookups of an existing pool take only the read lock. A miss goes through
// a singleflight group keyed by backing store, so concurrent first lookups
// share one construction. The map lock is never held while a pool is being
// opened.
type Registry struct {
	factory     ports.PoolFactory
	openTimeout time.Duration
	log         zerolog.Logger

	mu     sync.RWMutex
	pools  map[domain.BackingStoreID]ports.TenantPool
	closed bool

	group singleflight.Group
}

// NewRegistry returns an empty Registry that opens pools with factory.
func NewRegistry(factory ports.PoolFactory, openTimeout time.Duration, log zerolog.Logger) *Registry {
	if openTimeout <= 0 {
		openTimeout = defaultOpenTimeout
	}
	return &Registry{
		factory:     factory,
		openTimeout: openTimeout,
		log:         log.With().Str("component", "registry").Logger(),
		pools:       make(map[domain.BackingStoreID]ports.TenantPool),
	}
}

// Pool returns the shared pool for id, opening it on first use.
func (r *Registry) Pool(ctx context.Context, id domain.BackingStoreID) (ports.TenantPool, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty backing store", domain.ErrInvalidInput)
	}
	if p, err := r.lookup(id); p != nil || err != nil {
		return p, err
	}

	ch := r.group.DoChan(string(id), func() (any, error) {
		// Re-check: another flight may have published while we queued.
		if p, err := r.lookup(id); p != nil || err != nil {
			return p, err
		}
		return r.open(ctx, id)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(ports.TenantPool), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Registry) lookup(id domain.BackingStoreID) (ports.TenantPool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, domain.ErrRegistryClosed
	}
	return r.pools[id], nil
}

// open builds a pool outside the lock and publishes it. The construction is
// detached from the caller's cancellation because other callers may be
// waiting on the same flight.
func (r *Registry) open(ctx context.Context, id domain.BackingStoreID) (ports.TenantPool, error) {
	openCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.openTimeout)
	defer cancel()

	start := time.Now()
	pool, err := r.factory.Open(openCtx, id)
	metrics.TenantPoolOpenDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		r.log.Error().Err(err).Str("backing_store", string(id)).Msg("tenant pool open failed")
		return nil, fmt.Errorf("open tenant pool %s: %w: %w", id, domain.ErrStorageUnavailable, err)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = pool.Close(openCtx)
		return nil, domain.ErrRegistryClosed
	}
	r.pools[id] = pool
	n := len(r.pools)
	r.mu.Unlock()

	metrics.TenantPoolsOpen.Set(float64(n))
	r.log.Info().Str("backing_store", string(id)).Int("pools", n).Msg("tenant pool opened")
	return pool, nil
}

// Count returns the number of published pools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pools)
}

// DisposeAll closes every pool and marks the registry closed. Later lookups
// fail with domain.ErrRegistryClosed. Safe to call more than once.
func (r *Registry) DisposeAll(ctx context.Context) error {
	r.mu.Lock()
	pools := r.pools
	r.pools = make(map[domain.BackingStoreID]ports.TenantPool)
	r.closed = true
	r.mu.Unlock()

	var errs []error
	for id, p := range pools {
		if err := p.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", id, err))
		}
	}
	metrics.TenantPoolsOpen.Set(0)
	r.log.Info().Int("pools", len(pools)).Msg("tenant pools disposed")
	return errors.Join(errs...)
}
