package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rdpmon/middleware"
	"rdpmon/model"
	"rdpmon/utils"
)

const stateDocumentID = "rdpmon-state"

// MongoStore keeps the whole document as a single upserted record, so
// swapping it in for the file backend changes durability, not semantics:
// every save still rewrites all state.
type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(client *mongo.Client, database, collection string) *MongoStore {
	return &MongoStore{
		collection: client.Database(database).Collection(collection),
	}
}

// ConnectMongo dials MongoDB and verifies the connection before use.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

type mongoState struct {
	ID       string          `bson:"_id"`
	Document *model.Document `bson:"document"`
}

func (s *MongoStore) LoadAll(ctx context.Context) (*model.Document, error) {
	timer := middleware.TrackStoreOperation("load")
	defer timer.ObserveDuration()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result := s.collection.FindOne(ctx, bson.M{"_id": stateDocumentID})
	if err := result.Err(); err != nil {
		if err == mongo.ErrNoDocuments {
			return model.NewDocument(), nil
		}
		return nil, fmt.Errorf("failed to fetch state document: %w", err)
	}
	var state mongoState
	if err := result.Decode(&state); err != nil {
		// An undecodable state record is treated like a corrupt data
		// file: reset instead of failing every request.
		log.Printf("Failed to decode state document, resetting to empty document: %v", err)
		return model.NewDocument(), nil
	}
	doc := state.Document
	if doc == nil {
		doc = model.NewDocument()
	}
	doc.Normalize(utils.NowStamp())
	return doc, nil
}

func (s *MongoStore) SaveAll(ctx context.Context, doc *model.Document) error {
	timer := middleware.TrackStoreOperation("save")
	defer timer.ObserveDuration()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	state := mongoState{ID: stateDocumentID, Document: doc}
	_, err := s.collection.ReplaceOne(
		ctx,
		bson.M{"_id": stateDocumentID},
		state,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save state document: %w", err)
	}
	return nil
}
