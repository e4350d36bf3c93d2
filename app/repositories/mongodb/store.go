// Package mongodb implements the repository interfaces on MongoDB. Each
// like or counter change is a single-document update, which MongoDB applies
// atomically.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coahub/app/repositories"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	usersCollection    = "users"
	postsCollection    = "posts"
	commentsCollection = "comments"
)

// Store holds the client and the database the repositories share.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri, pings the primary and returns a store bound to dbName.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Store{client: client, db: client.Database(dbName)}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Drop removes the whole database. Used by tests.
func (s *Store) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

func (s *Store) Users() *UserRepo {
	return &UserRepo{col: s.db.Collection(usersCollection)}
}

func (s *Store) Posts() *PostRepo {
	return &PostRepo{col: s.db.Collection(postsCollection)}
}

func (s *Store) Comments() *CommentRepo {
	return &CommentRepo{col: s.db.Collection(commentsCollection)}
}

// EnsureIndexes creates the unique identity indexes and the listing indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_username")},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_email")},
	})
	if err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	_, err = s.db.Collection(postsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}, Options: options.Index().SetName("createdAt")},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("category_createdAt")},
	})
	if err != nil {
		return fmt.Errorf("posts indexes: %w", err)
	}

	_, err = s.db.Collection(commentsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "post_id", Value: 1}, {Key: "created_at", Value: 1}}, Options: options.Index().SetName("postId_createdAt")},
	})
	if err != nil {
		return fmt.Errorf("comments indexes: %w", err)
	}
	return nil
}

// mapError translates driver errors to the repository sentinels.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repositories.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return repositories.ErrDuplicate
	default:
		return err
	}
}
