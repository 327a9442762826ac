// Command server runs the recordkeeper HTTP API.
//
// @title                       recordkeeper API
// @version                     1.0
// @description                 Multi-tenant meeting records with per-workspace access control.
// @BasePath                    /
// @securityDefinitions.apikey  ApiKeyAuth
// @in                          header
// @name                        X-API-Key
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/meetingintel/recordkeeper/internal/api"
	"github.com/meetingintel/recordkeeper/internal/api/handler"
	"github.com/meetingintel/recordkeeper/internal/core/domain"
	"github.com/meetingintel/recordkeeper/internal/core/ports"
	"github.com/meetingintel/recordkeeper/internal/core/service"
	"github.com/meetingintel/recordkeeper/internal/infrastructure/db/mongo"
	"github.com/meetingintel/recordkeeper/internal/infrastructure/db/redis"
	"github.com/meetingintel/recordkeeper/internal/infrastructure/memory"
	"github.com/meetingintel/recordkeeper/internal/infrastructure/queue"
	"github.com/meetingintel/recordkeeper/internal/infrastructure/tenant"
	"github.com/meetingintel/recordkeeper/internal/pkg/config"
	"github.com/meetingintel/recordkeeper/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "recordkeeper",
	})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Control store ---
	client, db, err := mongo.Connect(ctx, mongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
		AppName:  "recordkeeper",
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = client.Disconnect(dctx)
	}()
	if err := mongo.EnsureControlIndexes(ctx, db); err != nil {
		return err
	}

	checks := map[string]handler.Check{
		"mongodb": func(ctx context.Context) error { return client.Ping(ctx, nil) },
	}

	// --- Redis (optional) ---
	var rdb *goredis.Client
	if cfg.UsesRedis() {
		rdb, err = redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	exec := service.NewExecutor(service.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
	}, mongo.IsTransient, log)

	credentials := mongo.NewCredentialRepository(db)
	directory := mongo.NewDirectoryRepository(db)
	workspaces := mongo.NewWorkspaceRepository(db)
	auditLog := mongo.NewAuditRepository(db)

	var overrides ports.OverrideStore = memory.NewOverrideStore()
	var throttle service.TouchThrottle
	if rdb != nil {
		overrides = redis.NewOverrideStore(rdb, cfg.Session.OverrideTTL)
		throttle = redis.NewTouchThrottle(rdb, cfg.Auth.TouchEvery)
	}

	// --- Background queues ---
	// Workers run on their own context so shutdown can drain them after the
	// HTTP server has stopped.
	queueCtx, stopQueues := context.WithCancel(context.Background())
	defer stopQueues()

	auditQueue := queue.NewDispatcher[*domain.AuditEntry](
		"audit",
		queue.Options{Workers: cfg.Audit.Workers, Buffer: cfg.Audit.Buffer},
		func(e *domain.AuditEntry) string { return e.WorkspaceID },
		service.NewAuditWriter(auditLog, exec, log),
		log,
	)
	touchQueue := queue.NewDispatcher[domain.CredentialTouch](
		"touch",
		queue.Options{Workers: 1},
		func(t domain.CredentialTouch) string { return t.CredentialID },
		service.NewTouchHandler(credentials, exec, throttle, log),
		log,
	)
	auditQueue.Start(queueCtx)
	touchQueue.Start(queueCtx)

	// --- Access core ---
	authenticator := service.NewTokenAuthenticator(credentials, exec, touchQueue, service.AuthenticatorConfig{
		CacheSize:   cfg.Auth.CacheSize,
		CacheTTL:    cfg.Auth.CacheTTL,
		OAuthSecret: cfg.Auth.OAuthSecret,
		OAuthIssuer: cfg.Auth.OAuthIssuer,
	}, log)
	resolver := service.NewResolver(directory, overrides, exec, log)
	audit := service.NewAuditRecorder(auditQueue, log)

	registry := tenant.NewRegistry(
		mongo.NewTenantPoolFactory(cfg.Tenant.URI, mongo.PoolSettings{
			Size:        cfg.Tenant.PoolSize,
			Overflow:    cfg.Tenant.Overflow,
			IdleRecycle: cfg.Tenant.IdleRecycle,
		}, cfg.Mongo.Timeout),
		cfg.Tenant.OpenTimeout,
		log,
	)

	e := api.NewRouter(api.Deps{
		Authenticator: authenticator,
		Resolver:      resolver,
		Records:       service.NewRecordService(registry, exec, audit, log),
		Admin:         service.NewAdminService(workspaces, directory, auditLog, audit, exec, cfg.Tenant.StorePrefix, log),
		Checks:        checks,
		Log:           log,
	})

	srvErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("recordkeeper listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown requested")
	case err := <-srvErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := e.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := auditQueue.Close(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := touchQueue.Close(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := registry.DisposeAll(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	log.Info().Int("errors", len(errs)).Msg("shutdown complete")
	return errors.Join(errs...)
}
