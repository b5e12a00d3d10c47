package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bds_scraper/models"
)

// MongoStore persists listing documents, keyed by unique_id so a
// re-scrape updates in place instead of inserting a duplicate.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// UpsertReport is the outcome of one bulk write.
type UpsertReport struct {
	Matched  int64
	Upserted int64
	Modified int64
	// Failed holds the unique IDs rejected by the server, in the order
	// the errors came back.
	Failed []string
}

func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	store := &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}
	if err := store.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return store, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "unique_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("ensure unique_id index: %w", err)
	}
	return nil
}

// BulkUpsert writes the batch in one unordered bulk operation: one
// $set upsert per record, filtered by unique_id. Per-record rejections
// are collected into the report; the rest of the batch still lands.
func (s *MongoStore) BulkUpsert(ctx context.Context, records []*models.ListingRecord) (*UpsertReport, error) {
	if len(records) == 0 {
		return &UpsertReport{}, nil
	}

	now := time.Now()
	ops := make([]mongo.WriteModel, 0, len(records))
	for _, rec := range records {
		rec.Scrub()
		rec.UpdatedAt = now
		ops = append(ops, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"unique_id": rec.UniqueID}).
			SetUpdate(bson.M{"$set": rec}).
			SetUpsert(true))
	}

	report := &UpsertReport{}
	result, err := s.collection.BulkWrite(ctx, ops, options.BulkWrite().SetOrdered(false))
	if result != nil {
		report.Matched = result.MatchedCount
		report.Upserted = result.UpsertedCount
		report.Modified = result.ModifiedCount
	}
	if err != nil {
		var bwe mongo.BulkWriteException
		if errors.As(err, &bwe) {
			for _, we := range bwe.WriteErrors {
				if we.Index >= 0 && we.Index < len(records) {
					report.Failed = append(report.Failed, records[we.Index].UniqueID)
				}
			}
			return report, nil
		}
		return report, fmt.Errorf("bulk upsert: %w", err)
	}
	return report, nil
}

// Get fetches one listing by unique ID, nil when absent.
func (s *MongoStore) Get(ctx context.Context, uniqueID string) (*models.ListingRecord, error) {
	var rec models.ListingRecord
	err := s.collection.FindOne(ctx, bson.M{"unique_id": uniqueID}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find listing: %w", err)
	}
	return &rec, nil
}

// All streams every stored listing, newest first.
func (s *MongoStore) All(ctx context.Context) ([]models.ListingRecord, error) {
	cursor, err := s.collection.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find listings: %w", err)
	}
	defer cursor.Close(ctx)

	var records []models.ListingRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode listings: %w", err)
	}
	return records, nil
}

// Count returns the number of stored listings.
func (s *MongoStore) Count(ctx context.Context) (int64, error) {
	return s.collection.CountDocuments(ctx, bson.M{})
}
