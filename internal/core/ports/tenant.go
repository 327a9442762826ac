package ports

import (
	"context"
	"time"

	"github.com/meetingintel/recordkeeper/internal/core/domain"
)

// RecordRepository stores business records inside one tenant store.
type RecordRepository interface {
	List(ctx context.Context, t domain.RecordType, limit int) ([]*domain.Record, error)
	// Get returns domain.ErrRecordNotFound when the record does not exist.
	Get(ctx context.Context, t domain.RecordType, id string) (*domain.Record, error)
	Insert(ctx context.Context, r *domain.Record) error
	Update(ctx context.Context, t domain.RecordType, id string, patch domain.RecordPatch, at time.Time) (*domain.Record, error)
	Delete(ctx context.Context, t domain.RecordType, id string) error
}

// TenantPool is a bounded connection pool to one backing store.
type TenantPool interface {
	BackingStore() domain.BackingStoreID
	Records() RecordRepository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// PoolFactory opens a new pool. It is called by the connection registry only.
type PoolFactory interface {
	Open(ctx context.Context, id domain.BackingStoreID) (TenantPool, error)
}

// PoolProvider hands out shared pools keyed by backing store.
type PoolProvider interface {
	Pool(ctx context.Context, id domain.BackingStoreID) (TenantPool, error)
}
