// Package mongodb is the Mongo-backed outbox store. Save runs inside the
// caller's session context so the insert commits atomically with the domain
// write that produced the event.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/warehouse-ops/fulfillment-service/pkg/outbox"
)

// DefaultCollectionName is where outbox events are stored.
const DefaultCollectionName = "outbox_events"

// publishedTTL ages out published events; unpublished documents have no
// publishedAt field and are never expired.
const publishedTTL = 7 * 24 * time.Hour

type OutboxRepository struct {
	collection *mongo.Collection
}

func NewOutboxRepository(db *mongo.Database) *OutboxRepository {
	return NewOutboxRepositoryWithCollection(db, DefaultCollectionName)
}

func NewOutboxRepositoryWithCollection(db *mongo.Database, collectionName string) *OutboxRepository {
	return &OutboxRepository{collection: db.Collection(collectionName)}
}

func (r *OutboxRepository) Save(ctx context.Context, event *outbox.OutboxEvent) error {
	if _, err := r.collection.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("save outbox event: %w", err)
	}
	return nil
}

func (r *OutboxRepository) SaveAll(ctx context.Context, batch []*outbox.OutboxEvent) error {
	if len(batch) == 0 {
		return nil
	}
	docs := make([]interface{}, len(batch))
	for i, event := range batch {
		docs[i] = event
	}
	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("save outbox events: %w", err)
	}
	return nil
}

// FindUnpublished returns pending events in creation order, skipping events
// whose retries are exhausted. Documents written before retryCount existed
// are treated as never retried.
func (r *OutboxRepository) FindUnpublished(ctx context.Context, limit int) ([]*outbox.OutboxEvent, error) {
	filter := bson.M{
		"publishedAt": bson.M{"$exists": false},
		"$or": []bson.M{
			{"retryCount": bson.M{"$lt": outbox.DefaultMaxRetries}},
			{"retryCount": bson.M{"$exists": false}},
		},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

// FindByAggregateID returns every event recorded for one aggregate, oldest
// first.
func (r *OutboxRepository) FindByAggregateID(ctx context.Context, aggregateID string) ([]*outbox.OutboxEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	return r.find(ctx, bson.M{"aggregateId": aggregateID}, opts)
}

func (r *OutboxRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*outbox.OutboxEvent, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*outbox.OutboxEvent
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("decode outbox events: %w", err)
	}
	return result, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, eventID string) error {
	update := bson.M{"$set": bson.M{"publishedAt": time.Now()}}
	return r.updateOne(ctx, eventID, update, "mark event published")
}

func (r *OutboxRepository) IncrementRetry(ctx context.Context, eventID string, errorMsg string) error {
	update := bson.M{
		"$inc": bson.M{"retryCount": 1},
		"$set": bson.M{"lastError": errorMsg},
	}
	return r.updateOne(ctx, eventID, update, "increment retry count")
}

func (r *OutboxRepository) updateOne(ctx context.Context, eventID string, update bson.M, op string) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": eventID}, update)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%s: event not found: %s", op, eventID)
	}
	return nil
}

// DeletePublished removes published events older than olderThan seconds.
// The TTL index covers steady-state cleanup; this exists for manual
// compaction with a shorter horizon.
func (r *OutboxRepository) DeletePublished(ctx context.Context, olderThan int64) error {
	threshold := time.Now().Add(-time.Duration(olderThan) * time.Second)
	filter := bson.M{"publishedAt": bson.M{"$exists": true, "$lt": threshold}}
	if _, err := r.collection.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("delete published events: %w", err)
	}
	return nil
}

// GetByID returns the event, or nil when no such event exists.
func (r *OutboxRepository) GetByID(ctx context.Context, eventID string) (*outbox.OutboxEvent, error) {
	var event outbox.OutboxEvent
	err := r.collection.FindOne(ctx, bson.M{"_id": eventID}).Decode(&event)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get outbox event: %w", err)
	}
	return &event, nil
}

// EnsureIndexes creates the publisher's polling index, the per-aggregate
// lookup index, and the TTL index that expires published events.
func (r *OutboxRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "publishedAt", Value: 1},
				{Key: "createdAt", Value: 1},
			},
			Options: options.Index().SetName("idx_publishedAt_createdAt"),
		},
		{
			Keys: bson.D{
				{Key: "aggregateId", Value: 1},
				{Key: "createdAt", Value: 1},
			},
			Options: options.Index().SetName("idx_aggregateId_createdAt"),
		},
		{
			Keys: bson.D{{Key: "publishedAt", Value: 1}},
			Options: options.Index().
				SetName("idx_publishedAt_ttl").
				SetExpireAfterSeconds(int32(publishedTTL / time.Second)),
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create outbox indexes: %w", err)
	}
	return nil
}
