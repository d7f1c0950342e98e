package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/carharvest/internal/config"
	"github.com/IshaanNene/carharvest/internal/types"
)

// MongoStore keeps one document per listing in a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
	logger     *slog.Logger
}

// NewMongoStore connects to MongoDB and ensures a unique index on url.
func NewMongoStore(ctx context.Context, cfg *config.StorageConfig, collection string, logger *slog.Logger) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Op: "connect", Err: err}
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Op: "ping", Err: err}
	}

	s := &MongoStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(collection),
		timeout:    cfg.Timeout,
		logger:     logger.With("component", "mongo_store", "collection", collection),
	}

	_, err = s.collection.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: types.FieldURL, Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Op: "create index", Err: err}
	}

	return s, nil
}

func (s *MongoStore) Name() string { return "mongodb" }

func (s *MongoStore) FindOne(ctx context.Context, url string) (*types.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc bson.M
	err := s.collection.FindOne(ctx, bson.M{types.FieldURL: url}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Op: "find", Err: err}
	}
	return types.ListingFromDocument(doc)
}

func (s *MongoStore) Upsert(ctx context.Context, listing *types.Listing) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.collection.UpdateOne(ctx,
		bson.M{types.FieldURL: listing.URL},
		bson.M{"$set": listing.Document()},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return &types.StorageError{Backend: "mongodb", Op: "upsert", Err: err}
	}
	s.logger.Debug("listing upserted", "url", listing.URL)
	return nil
}

func (s *MongoStore) All(ctx context.Context) ([]*types.Listing, error) {
	cursor, err := s.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Op: "find all", Err: err}
	}
	defer cursor.Close(ctx)

	var listings []*types.Listing
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, &types.StorageError{Backend: "mongodb", Op: "decode", Err: err}
		}
		listing, err := types.ListingFromDocument(doc)
		if err != nil {
			s.logger.Warn("skipping document without url", "id", doc["_id"], "error", err)
			continue
		}
		listings = append(listings, listing)
	}
	if err := cursor.Err(); err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Op: "cursor", Err: err}
	}
	return listings, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongodb disconnect: %w", err)
	}
	return nil
}
