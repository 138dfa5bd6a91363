package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophrelay/internal/server/repositories/files"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/x/mongo/driver/connstring"
)

const defaultMongoDatabase = "gophrelay"

type MongoRepositoryManager struct {
	client *mongo.Client
	db     *mongo.Database
	files  files.Repository
}

// RunMigrations creates the created_at index. The _id index already enforces
// unique file ids.
func (m *MongoRepositoryManager) RunMigrations(ctx context.Context) error {
	_, err := m.db.Collection(files.CollectionName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: 1}},
		Options: options.Index().SetName("files_created_at_idx"),
	})
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

func (m *MongoRepositoryManager) Files() files.Repository {
	return m.files
}

func (m *MongoRepositoryManager) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func NewMongoRepositoryManager(ctx context.Context, dsn string) (*MongoRepositoryManager, error) {
	name, err := mongoDatabaseName(dsn)
	if err != nil {
		return nil, err
	}
	client, err := mongo.Connect(options.Client().ApplyURI(dsn))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	db := client.Database(name)
	return &MongoRepositoryManager{client: client, db: db, files: files.NewMongoRepository(db)}, nil
}

// mongoDatabaseName is the path component of the DSN or gophrelay.
func mongoDatabaseName(dsn string) (string, error) {
	cs, err := connstring.ParseAndValidate(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mongo dsn: %w", err)
	}
	if cs.Database == "" {
		return defaultMongoDatabase, nil
	}
	return cs.Database, nil
}
