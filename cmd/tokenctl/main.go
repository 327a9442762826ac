// Command tokenctl manages credentials, identities and workspace memberships
// directly in the control store.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/meetingintel/recordkeeper/internal/core/domain"
	"github.com/meetingintel/recordkeeper/internal/core/service"
	"github.com/meetingintel/recordkeeper/internal/infrastructure/db/mongo"
	"github.com/meetingintel/recordkeeper/internal/infrastructure/queue"
	"github.com/meetingintel/recordkeeper/internal/pkg/config"
	"github.com/meetingintel/recordkeeper/pkg/logger"
)

// cliIdentity is recorded as creator and audit actor for every CLI change.
const cliIdentity = "cli-admin"

func main() {
	root := newRootCmd(connect)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// connect wires the services against the configured control store. The
// returned app owns the connection and the audit queue.
func connect(ctx context.Context) (*app, error) {
	cfg := config.Load()
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Output: os.Stderr, Service: "tokenctl"})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, db, err := mongo.Connect(ctx, mongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
		AppName:  "tokenctl",
	})
	if err != nil {
		return nil, err
	}

	exec := service.NewExecutor(service.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
	}, mongo.IsTransient, log)

	credentials := mongo.NewCredentialRepository(db)
	directory := mongo.NewDirectoryRepository(db)
	auditLog := mongo.NewAuditRepository(db)

	auditQueue := queue.NewDispatcher[*domain.AuditEntry](
		"audit",
		queue.Options{Workers: 1},
		func(e *domain.AuditEntry) string { return e.WorkspaceID },
		service.NewAuditWriter(auditLog, exec, log),
		log,
	)
	auditQueue.Start(context.Background())

	return &app{
		creds: service.NewCredentialService(credentials, directory, exec, log),
		admin: service.NewAdminService(
			mongo.NewWorkspaceRepository(db), directory, auditLog,
			service.NewAuditRecorder(auditQueue, log), exec, cfg.Tenant.StorePrefix, log,
		),
		dir:   directory,
		actor: cliActor(),
		out:   os.Stdout,
		close: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			qerr := auditQueue.Close(ctx)
			if err := client.Disconnect(ctx); err != nil {
				return err
			}
			return qerr
		},
	}, nil
}

// cliActor is the administrator the CLI acts as. Operators running tokenctl
// already hold direct control store access.
func cliActor() *domain.Actor {
	return &domain.Actor{
		Identity: domain.Identity{Key: cliIdentity, IsAdmin: true},
		Method:   domain.AccessCLI,
	}
}
