package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/meetingintel/recordkeeper/internal/core/domain"
)

const auditCollection = "audit_log"

type AuditRepository struct {
	coll *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{coll: db.Collection(auditCollection)}
}

type auditDoc struct {
	ID            string    `bson:"_id"`
	IdentityKey   string    `bson:"identity_key"`
	WorkspaceID   string    `bson:"workspace_id"`
	WorkspaceName string    `bson:"workspace_name"`
	Operation     string    `bson:"operation"`
	EntityType    string    `bson:"entity_type"`
	EntityID      string    `bson:"entity_id,omitempty"`
	Detail        string    `bson:"detail,omitempty"`
	AccessMethod  string    `bson:"access_method"`
	Timestamp     time.Time `bson:"timestamp"`
}

// Insert appends e. A duplicate ID means a retried insert already landed.
func (r *AuditRepository) Insert(ctx context.Context, e *domain.AuditEntry) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := auditDoc{
		ID:            e.ID,
		IdentityKey:   e.IdentityKey,
		WorkspaceID:   e.WorkspaceID,
		WorkspaceName: e.WorkspaceName,
		Operation:     string(e.Operation),
		EntityType:    e.EntityType,
		EntityID:      e.EntityID,
		Detail:        e.Detail,
		AccessMethod:  string(e.AccessMethod),
		Timestamp:     e.Timestamp,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListByWorkspace returns the newest entries first.
func (r *AuditRepository) ListByWorkspace(ctx context.Context, workspaceID string, limit int) ([]*domain.AuditEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, bson.M{"workspace_id": workspaceID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer cur.Close(ctx)

	var docs []auditDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode audit entries: %w", err)
	}
	out := make([]*domain.AuditEntry, 0, len(docs))
	for _, d := range docs {
		out = append(out, &domain.AuditEntry{
			ID:            d.ID,
			IdentityKey:   d.IdentityKey,
			WorkspaceID:   d.WorkspaceID,
			WorkspaceName: d.WorkspaceName,
			Operation:     domain.Operation(d.Operation),
			EntityType:    d.EntityType,
			EntityID:      d.EntityID,
			Detail:        d.Detail,
			AccessMethod:  domain.AccessMethod(d.AccessMethod),
			Timestamp:     d.Timestamp,
		})
	}
	return out, nil
}

// EnsureIndexes creates the (workspace, timestamp) listing index.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "workspace_id", Value: 1}, {Key: "timestamp", Value: -1}},
	})
	return err
}
