package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/meetingintel/recordkeeper/internal/core/domain"
	"github.com/meetingintel/recordkeeper/internal/pkg/metrics"
)

// RetryPolicy bounds the retries of one storage operation.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy is 3 attempts with exponential backoff from 500ms, capped at 10s.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	BaseDelay:   500 * time.Millisecond,
	MaxDelay:    10 * time.Second,
}

// Classifier reports whether err is a transient infrastructure fault.
type Classifier func(err error) bool

// IsTransientStorage is the default Classifier: only errors wrapping
// domain.ErrTransientStorage are retried.
func IsTransientStorage(err error) bool {
	return errors.Is(err, domain.ErrTransientStorage)
}

// Executor wraps storage calls with bounded retry for transient faults.
// Non-transient errors are returned unchanged on first occurrence.
type Executor struct {
	policy    RetryPolicy
	transient Classifier
	log       zerolog.Logger
}

// NewExecutor returns an Executor. A nil classifier means IsTransientStorage.
func NewExecutor(policy RetryPolicy, transient Classifier, log zerolog.Logger) *Executor {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = DefaultRetryPolicy.BaseDelay
	}
	if policy.MaxDelay < policy.BaseDelay {
		policy.MaxDelay = policy.BaseDelay
	}
	if transient == nil {
		transient = IsTransientStorage
	}
	return &Executor{
		policy:    policy,
		transient: transient,
		log:       log.With().Str("component", "executor").Logger(),
	}
}

func (e *Executor) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.policy.BaseDelay
	b.MaxInterval = e.policy.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(e.policy.MaxAttempts-1)), ctx)
}

// Do runs fn until it succeeds, fails with a non-transient error, or the
// attempt cap is reached. Exhaustion yields an error wrapping
// domain.ErrStorageUnavailable and the last cause.
func (e *Executor) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	var (
		attempts int
		lastErr  error
		fatal    bool
	)
	op := func() error {
		attempts++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !e.transient(err) {
			fatal = true
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		metrics.StorageRetriesTotal.WithLabelValues(name).Inc()
		e.log.Warn().Err(err).
			Str("operation", name).
			Int("attempt", attempts).
			Dur("backoff", wait).
			Msg("transient storage fault, retrying")
	}

	if err := backoff.RetryNotify(op, e.backOff(ctx), notify); err == nil {
		return nil
	}
	if fatal {
		metrics.StorageFailuresTotal.WithLabelValues(name, "fatal").Inc()
		return lastErr
	}
	metrics.StorageFailuresTotal.WithLabelValues(name, "exhausted").Inc()
	e.log.Error().Err(lastErr).
		Str("operation", name).
		Int("attempts", attempts).
		Msg("storage retries exhausted")
	return fmt.Errorf("%s: %w after %d attempts: %w", name, domain.ErrStorageUnavailable, attempts, lastErr)
}

// Run is Do for operations that return a value.
func Run[T any](ctx context.Context, e *Executor, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := e.Do(ctx, name, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
