// Package mongo contains MongoDB implementations of the repository interfaces.
// It is an alternative to the postgres store selected with -store=mongo.
package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersColl    = "users"
	profilesColl = "profiles"
)

// Store holds the client and database handle shared by the repositories.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials MongoDB, pings it and selects dbName.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	opts := options.Client().ApplyURI(uri).SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return &Store{client: client, db: client.Database(dbName)}, nil
}

// EnsureIndexes creates the unique username index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(usersColl).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetName("idx_username").SetUnique(true),
	})
	return err
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
