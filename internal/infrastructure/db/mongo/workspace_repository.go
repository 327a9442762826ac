package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/meetingintel/recordkeeper/internal/core/domain"
)

const workspacesCollection = "workspaces"

type WorkspaceRepository struct {
	coll *mongo.Collection
}

func NewWorkspaceRepository(db *mongo.Database) *WorkspaceRepository {
	return &WorkspaceRepository{coll: db.Collection(workspacesCollection)}
}

type workspaceDoc struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	DisplayName  string    `bson:"display_name"`
	BackingStore string    `bson:"backing_store"`
	IsDefault    bool      `bson:"is_default"`
	IsArchived   bool      `bson:"is_archived"`
	CreatedAt    time.Time `bson:"created_at"`
}

func (d workspaceDoc) toDomain() *domain.Workspace {
	return &domain.Workspace{
		ID:           d.ID,
		Name:         d.Name,
		DisplayName:  d.DisplayName,
		BackingStore: domain.BackingStoreID(d.BackingStore),
		IsDefault:    d.IsDefault,
		IsArchived:   d.IsArchived,
		CreatedAt:    d.CreatedAt,
	}
}

func (r *WorkspaceRepository) Create(ctx context.Context, ws *domain.Workspace) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := workspaceDoc{
		ID:           ws.ID,
		Name:         ws.Name,
		DisplayName:  ws.DisplayName,
		BackingStore: string(ws.BackingStore),
		IsDefault:    ws.IsDefault,
		IsArchived:   ws.IsArchived,
		CreatedAt:    ws.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrWorkspaceExists
		}
		return fmt.Errorf("insert workspace: %w", err)
	}
	return nil
}

func (r *WorkspaceRepository) findOne(ctx context.Context, filter bson.M) (*domain.Workspace, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc workspaceDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("find workspace: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *WorkspaceRepository) FindByID(ctx context.Context, id string) (*domain.Workspace, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *WorkspaceRepository) FindByName(ctx context.Context, name string) (*domain.Workspace, error) {
	return r.findOne(ctx, bson.M{"name": name})
}

func (r *WorkspaceRepository) List(ctx context.Context) ([]*domain.Workspace, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer cur.Close(ctx)

	var docs []workspaceDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode workspaces: %w", err)
	}
	out := make([]*domain.Workspace, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *WorkspaceRepository) SetArchived(ctx context.Context, id string, archived bool) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{"is_archived": archived}})
	if err != nil {
		return fmt.Errorf("archive workspace: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrWorkspaceNotFound
	}
	return nil
}

// byIDs loads the workspaces with the given IDs, keyed by ID.
func (r *WorkspaceRepository) byIDs(ctx context.Context, ids []string) (map[string]workspaceDoc, error) {
	out := make(map[string]workspaceDoc, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find workspaces: %w", err)
	}
	defer cur.Close(ctx)

	var docs []workspaceDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode workspaces: %w", err)
	}
	for _, d := range docs {
		out[d.ID] = d
	}
	return out, nil
}

// EnsureIndexes creates the unique name index and the partial index that
// allows at most one default workspace.
func (r *WorkspaceRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{
			Keys: bson.D{{Key: "is_default", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"is_default": true}),
		},
		{Keys: bson.D{{Key: "backing_store", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	return err
}
