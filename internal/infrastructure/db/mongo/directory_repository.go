package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/meetingintel/recordkeeper/internal/core/domain"
)

const (
	identitiesCollection  = "identities"
	membershipsCollection = "memberships"
)

// DirectoryRepository stores identities and memberships. Memberships are
// joined with workspaces in application code.
type DirectoryRepository struct {
	identities  *mongo.Collection
	memberships *mongo.Collection
	workspaces  *WorkspaceRepository
}

func NewDirectoryRepository(db *mongo.Database) *DirectoryRepository {
	return &DirectoryRepository{
		identities:  db.Collection(identitiesCollection),
		memberships: db.Collection(membershipsCollection),
		workspaces:  NewWorkspaceRepository(db),
	}
}

type identityDoc struct {
	ID                 string    `bson:"_id"`
	Key                string    `bson:"key"`
	DisplayName        string    `bson:"display_name,omitempty"`
	IsAdmin            bool      `bson:"is_admin"`
	DefaultWorkspaceID string    `bson:"default_workspace_id,omitempty"`
	CreatedBy          string    `bson:"created_by,omitempty"`
	CreatedAt          time.Time `bson:"created_at"`
}

func (d identityDoc) toDomain() *domain.Identity {
	return &domain.Identity{
		ID:                 d.ID,
		Key:                d.Key,
		DisplayName:        d.DisplayName,
		IsAdmin:            d.IsAdmin,
		DefaultWorkspaceID: d.DefaultWorkspaceID,
	}
}

type membershipDoc struct {
	ID          string    `bson:"_id"`
	IdentityID  string    `bson:"identity_id"`
	WorkspaceID string    `bson:"workspace_id"`
	Role        string    `bson:"role"`
	AddedBy     string    `bson:"added_by,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
}

func (r *DirectoryRepository) FindIdentityByKey(ctx context.Context, key string) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc identityDoc
	if err := r.identities.FindOne(ctx, bson.M{"key": key}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *DirectoryRepository) EnsureIdentity(ctx context.Context, key, createdBy string) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{"$setOnInsert": bson.M{
		"_id":        uuid.NewString(),
		"key":        key,
		"is_admin":   false,
		"created_by": createdBy,
		"created_at": time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc identityDoc
	err := r.identities.FindOneAndUpdate(ctx, bson.M{"key": key}, update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		// Lost an upsert race; the winner's row is there now.
		err = r.identities.FindOne(ctx, bson.M{"key": key}).Decode(&doc)
	}
	if err != nil {
		return nil, fmt.Errorf("ensure identity: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *DirectoryRepository) SetAdmin(ctx context.Context, identityID string, admin bool) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.identities.UpdateByID(ctx, identityID, bson.M{"$set": bson.M{"is_admin": admin}})
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrIdentityNotFound
	}
	return nil
}

func (r *DirectoryRepository) ListMemberships(ctx context.Context, identityID string) ([]domain.Membership, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	docs, err := r.findMemberships(ctx, bson.M{"identity_id": identityID})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.WorkspaceID)
	}
	workspaces, err := r.workspaces.byIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Membership, 0, len(docs))
	for _, d := range docs {
		ws, ok := workspaces[d.WorkspaceID]
		if !ok {
			continue
		}
		role, err := domain.ParseRole(d.Role)
		if err != nil {
			// A corrupt role grants nothing.
			continue
		}
		out = append(out, domain.Membership{
			WorkspaceID:          ws.ID,
			WorkspaceName:        ws.Name,
			WorkspaceDisplayName: ws.DisplayName,
			BackingStore:         domain.BackingStoreID(ws.BackingStore),
			Role:                 role,
			IsDefault:            ws.IsDefault,
			IsArchived:           ws.IsArchived,
		})
	}
	return out, nil
}

func (r *DirectoryRepository) ListMembers(ctx context.Context, workspaceID string) ([]domain.Member, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	docs, err := r.findMemberships(ctx, bson.M{"workspace_id": workspaceID})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.IdentityID)
	}

	idents := make(map[string]identityDoc, len(ids))
	if len(ids) > 0 {
		cur, err := r.identities.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return nil, fmt.Errorf("find identities: %w", err)
		}
		defer cur.Close(ctx)
		var identDocs []identityDoc
		if err := cur.All(ctx, &identDocs); err != nil {
			return nil, fmt.Errorf("decode identities: %w", err)
		}
		for _, d := range identDocs {
			idents[d.ID] = d
		}
	}

	out := make([]domain.Member, 0, len(docs))
	for _, d := range docs {
		ident, ok := idents[d.IdentityID]
		if !ok {
			continue
		}
		out = append(out, domain.Member{
			IdentityID:  ident.ID,
			IdentityKey: ident.Key,
			DisplayName: ident.DisplayName,
			Role:        domain.Role(d.Role),
		})
	}
	return out, nil
}

func (r *DirectoryRepository) findMemberships(ctx context.Context, filter bson.M) ([]membershipDoc, error) {
	cur, err := r.memberships.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "workspace_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find memberships: %w", err)
	}
	defer cur.Close(ctx)

	var docs []membershipDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode memberships: %w", err)
	}
	return docs, nil
}

func (r *DirectoryRepository) AddMembership(ctx context.Context, identityID, workspaceID string, role domain.Role, addedBy string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := membershipDoc{
		ID:          uuid.NewString(),
		IdentityID:  identityID,
		WorkspaceID: workspaceID,
		Role:        string(role),
		AddedBy:     addedBy,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := r.memberships.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrMembershipExists
		}
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

func (r *DirectoryRepository) UpdateMembershipRole(ctx context.Context, identityID, workspaceID string, role domain.Role) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.memberships.UpdateOne(ctx,
		bson.M{"identity_id": identityID, "workspace_id": workspaceID},
		bson.M{"$set": bson.M{"role": string(role)}},
	)
	if err != nil {
		return fmt.Errorf("update membership: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrMembershipNotFound
	}
	return nil
}

func (r *DirectoryRepository) RemoveMembership(ctx context.Context, identityID, workspaceID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.memberships.DeleteOne(ctx, bson.M{"identity_id": identityID, "workspace_id": workspaceID})
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrMembershipNotFound
	}
	return nil
}

// EnsureIndexes creates the identity key and (identity, workspace) indexes.
func (r *DirectoryRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := r.identities.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	_, err := r.memberships.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "identity_id", Value: 1}, {Key: "workspace_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "workspace_id", Value: 1}}},
	})
	return err
}
