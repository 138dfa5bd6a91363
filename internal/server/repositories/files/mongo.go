package files

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/common"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const CollectionName = "files"

type fileDocument struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Extension string    `bson:"extension"`
	Size      *int64    `bson:"size,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
	CreatedBy string    `bson:"created_by"`
}

// collection is the part of *mongo.Collection used here.
type collection interface {
	InsertOne(ctx context.Context, document any, opts ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error)
	FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) *mongo.SingleResult
}

// MongoRepository stores one document per file, keyed by the file id.
type MongoRepository struct {
	coll collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(CollectionName)}
}

func (r *MongoRepository) Commit(ctx context.Context, file *models.FileRecord) error {
	doc := fileDocument{
		ID:        file.ID.String(),
		Name:      file.Name,
		Extension: file.Extension,
		Size:      file.Size,
		CreatedAt: file.CreatedAt,
		CreatedBy: createdBy(ctx, file),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("mongo insert: %w", err)
	}
	return nil
}

func (r *MongoRepository) Get(ctx context.Context, id uuid.UUID) (*models.FileRecord, error) {
	var doc fileDocument
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id.String()}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}

	parsed, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("stored id %q: %w", doc.ID, err)
	}
	return &models.FileRecord{
		ID:        parsed,
		Name:      doc.Name,
		Extension: doc.Extension,
		Size:      doc.Size,
		CreatedAt: doc.CreatedAt.UTC(),
		CreatedBy: doc.CreatedBy,
	}, nil
}
