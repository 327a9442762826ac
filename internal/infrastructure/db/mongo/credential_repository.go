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

const credentialsCollection = "credentials"

type CredentialRepository struct {
	coll *mongo.Collection
}

func NewCredentialRepository(db *mongo.Database) *CredentialRepository {
	return &CredentialRepository{coll: db.Collection(credentialsCollection)}
}

type credentialDoc struct {
	ID          string     `bson:"_id"`
	Digest      string     `bson:"digest"`
	IdentityKey string     `bson:"identity_key"`
	Label       string     `bson:"label,omitempty"`
	Active      bool       `bson:"active"`
	ExpiresAt   *time.Time `bson:"expires_at,omitempty"`
	RevokedAt   *time.Time `bson:"revoked_at,omitempty"`
	CreatedBy   string     `bson:"created_by,omitempty"`
	CreatedAt   time.Time  `bson:"created_at"`
	LastUsedAt  *time.Time `bson:"last_used_at,omitempty"`
}

func (d credentialDoc) toDomain() *domain.Credential {
	return &domain.Credential{
		ID:          d.ID,
		Digest:      d.Digest,
		IdentityKey: d.IdentityKey,
		Label:       d.Label,
		Active:      d.Active,
		ExpiresAt:   d.ExpiresAt,
		RevokedAt:   d.RevokedAt,
		CreatedBy:   d.CreatedBy,
		CreatedAt:   d.CreatedAt,
		LastUsedAt:  d.LastUsedAt,
	}
}

func (r *CredentialRepository) FindByDigest(ctx context.Context, digest string) (*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc credentialDoc
	if err := r.coll.FindOne(ctx, bson.M{"digest": digest}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *CredentialRepository) Create(ctx context.Context, c *domain.Credential) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := credentialDoc{
		ID:          c.ID,
		Digest:      c.Digest,
		IdentityKey: c.IdentityKey,
		Label:       c.Label,
		Active:      c.Active,
		ExpiresAt:   c.ExpiresAt,
		RevokedAt:   c.RevokedAt,
		CreatedBy:   c.CreatedBy,
		CreatedAt:   c.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: credential digest collision", domain.ErrInvalidInput)
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

func (r *CredentialRepository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.coll.UpdateByID(ctx, id, bson.M{"$max": bson.M{"last_used_at": at}})
	if err != nil {
		return fmt.Errorf("touch credential: %w", err)
	}
	return nil
}

func (r *CredentialRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{"active": false, "revoked_at": at}})
	if err != nil {
		return fmt.Errorf("revoke credential: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrCredentialNotFound
	}
	return nil
}

func (r *CredentialRepository) List(ctx context.Context, identityKey string) ([]*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if identityKey != "" {
		filter["identity_key"] = identityKey
	}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer cur.Close(ctx)

	var docs []credentialDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	out := make([]*domain.Credential, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// EnsureIndexes creates the digest lookup index.
func (r *CredentialRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "digest", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "identity_key", Value: 1}}},
	})
	return err
}
