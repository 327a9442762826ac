package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultTimeout = 10 * time.Second

// Config captures the settings required to establish a MongoDB connection.
// Pool fields left at zero use the driver defaults.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration

	MinPoolSize     uint64
	MaxPoolSize     uint64
	MaxConnIdleTime time.Duration
	AppName         string
}

func (cfg Config) clientOptions() *options.ClientOptions {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.MinPoolSize > 0 {
		opts.SetMinPoolSize(cfg.MinPoolSize)
	}
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.MaxConnIdleTime > 0 {
		opts.SetMaxConnIdleTime(cfg.MaxConnIdleTime)
	}
	if cfg.AppName != "" {
		opts.SetAppName(cfg.AppName)
	}
	return opts
}

// Connect establishes a MongoDB client, verifies connectivity with a ping, and
// returns both the client and the selected database. A default timeout is
// applied when none is provided.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, cfg.clientOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(cfg.Database)
	return client, db, nil
}

// EnsureControlIndexes creates the indexes every control store collection relies on.
func EnsureControlIndexes(ctx context.Context, db *mongo.Database) error {
	for _, ensure := range []func(context.Context) error{
		NewWorkspaceRepository(db).EnsureIndexes,
		NewDirectoryRepository(db).EnsureIndexes,
		NewCredentialRepository(db).EnsureIndexes,
		NewAuditRepository(db).EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			return err
		}
	}
	return nil
}
