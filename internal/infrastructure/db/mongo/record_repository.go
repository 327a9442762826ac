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

// RecordRepository stores records in one tenant database, one collection per
// record type.
type RecordRepository struct {
	db *mongo.Database
}

func NewRecordRepository(db *mongo.Database) *RecordRepository {
	return &RecordRepository{db: db}
}

type recordDoc struct {
	ID        string    `bson:"_id"`
	Title     string    `bson:"title"`
	Content   string    `bson:"content,omitempty"`
	Status    string    `bson:"status,omitempty"`
	CreatedBy string    `bson:"created_by"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d recordDoc) toDomain(t domain.RecordType) *domain.Record {
	return &domain.Record{
		ID:        d.ID,
		Type:      t,
		Title:     d.Title,
		Content:   d.Content,
		Status:    d.Status,
		CreatedBy: d.CreatedBy,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (r *RecordRepository) coll(t domain.RecordType) *mongo.Collection {
	return r.db.Collection(string(t))
}

func (r *RecordRepository) List(ctx context.Context, t domain.RecordType, limit int) ([]*domain.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := r.coll(t).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t, err)
	}
	defer cur.Close(ctx)

	var docs []recordDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	out := make([]*domain.Record, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain(t))
	}
	return out, nil
}

func (r *RecordRepository) Get(ctx context.Context, t domain.RecordType, id string) (*domain.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc recordDoc
	if err := r.coll(t).FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("find %s: %w", t, err)
	}
	return doc.toDomain(t), nil
}

func (r *RecordRepository) Insert(ctx context.Context, rec *domain.Record) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := recordDoc{
		ID:        rec.ID,
		Title:     rec.Title,
		Content:   rec.Content,
		Status:    rec.Status,
		CreatedBy: rec.CreatedBy,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if _, err := r.coll(rec.Type).InsertOne(ctx, doc); err != nil {
		// A retried insert whose first attempt landed.
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert %s: %w", rec.Type, err)
	}
	return nil
}

func (r *RecordRepository) Update(ctx context.Context, t domain.RecordType, id string, p domain.RecordPatch, at time.Time) (*domain.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{"updated_at": at}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Content != nil {
		set["content"] = *p.Content
	}
	if p.Status != nil {
		set["status"] = *p.Status
	}

	var doc recordDoc
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := r.coll(t).FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("update %s: %w", t, err)
	}
	return doc.toDomain(t), nil
}

func (r *RecordRepository) Delete(ctx context.Context, t domain.RecordType, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll(t).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s: %w", t, err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}
