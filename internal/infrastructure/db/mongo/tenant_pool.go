package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/meetingintel/recordkeeper/internal/core/domain"
	"github.com/meetingintel/recordkeeper/internal/core/ports"
)

// PoolSettings bounds each tenant client. Many tenant databases usually share
// one server, so pools stay small: Size connections kept warm, at most
// Size+Overflow open.
type PoolSettings struct {
	Size        uint64
	Overflow    uint64
	IdleRecycle time.Duration
}

// TenantPoolFactory opens one client per backing store. The backing store
// identifier is the tenant database name.
type TenantPoolFactory struct {
	uri      string
	settings PoolSettings
	timeout  time.Duration
}

func NewTenantPoolFactory(uri string, settings PoolSettings, timeout time.Duration) *TenantPoolFactory {
	return &TenantPoolFactory{uri: uri, settings: settings, timeout: timeout}
}

// Open connects and pings before returning, so a published pool is known live.
func (f *TenantPoolFactory) Open(ctx context.Context, id domain.BackingStoreID) (ports.TenantPool, error) {
	client, db, err := Connect(ctx, Config{
		URI:             f.uri,
		Database:        string(id),
		Timeout:         f.timeout,
		MinPoolSize:     f.settings.Size,
		MaxPoolSize:     f.settings.Size + f.settings.Overflow,
		MaxConnIdleTime: f.settings.IdleRecycle,
		AppName:         "recordkeeper-tenant",
	})
	if err != nil {
		return nil, fmt.Errorf("tenant %s: %w", id, err)
	}
	return &TenantPool{
		id:      id,
		client:  client,
		records: NewRecordRepository(db),
	}, nil
}

// TenantPool is a bounded client scoped to one tenant database. The driver
// checks a connection out per operation and returns it when the operation
// (or its cursor) finishes.
type TenantPool struct {
	id      domain.BackingStoreID
	client  *mongo.Client
	records *RecordRepository
}

func (p *TenantPool) BackingStore() domain.BackingStoreID { return p.id }

func (p *TenantPool) Records() ports.RecordRepository { return p.records }

func (p *TenantPool) Ping(ctx context.Context) error {
	return p.client.Ping(ctx, readpref.Primary())
}

func (p *TenantPool) Close(ctx context.Context) error {
	return p.client.Disconnect(ctx)
}
