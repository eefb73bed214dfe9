package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	keysCollection     = "idempotency_keys"
	messagesCollection = "processed_messages"
)

// MongoKeyRepository is the MongoDB-backed KeyRepository.
type MongoKeyRepository struct {
	col *mongo.Collection
}

func NewMongoKeyRepository(db *mongo.Database) *MongoKeyRepository {
	return &MongoKeyRepository{col: db.Collection(keysCollection)}
}

func (r *MongoKeyRepository) AcquireLock(ctx context.Context, record *KeyRecord) (*KeyRecord, bool, error) {
	now := time.Now().UTC()
	newID := primitive.NewObjectID()

	// Single upsert: insert the record if the key is new, otherwise refresh
	// the lock timestamp on the existing one. Returning the document as it
	// was BEFORE the update lets the caller see the prior lock state instead
	// of the lock this call just took.
	filter := bson.M{"serviceId": record.ServiceID, "key": record.Key}
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":                newID,
			"key":                record.Key,
			"serviceId":          record.ServiceID,
			"userId":             record.UserID,
			"requestPath":        record.RequestPath,
			"requestMethod":      record.RequestMethod,
			"requestFingerprint": record.RequestFingerprint,
			"createdAt":          record.CreatedAt,
			"expiresAt":          record.ExpiresAt,
		},
		"$set": bson.M{"lockedAt": now},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before)

	var prior KeyRecord
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&prior)
	if errors.Is(err, mongo.ErrNoDocuments) {
		created := *record
		created.ID = newID
		created.LockedAt = &now
		return &created, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("acquire idempotency lock: %w", err)
	}

	return &prior, false, nil
}

func (r *MongoKeyRepository) ReleaseLock(ctx context.Context, recordID string) error {
	objID, err := primitive.ObjectIDFromHex(recordID)
	if err != nil {
		return fmt.Errorf("invalid record id: %w", err)
	}

	_, err = r.col.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$unset": bson.M{"lockedAt": ""}})
	return err
}

func (r *MongoKeyRepository) StoreResponse(ctx context.Context, recordID string, code int, body []byte, headers map[string]string) error {
	objID, err := primitive.ObjectIDFromHex(recordID)
	if err != nil {
		return fmt.Errorf("invalid record id: %w", err)
	}

	update := bson.M{
		"$set": bson.M{
			"responseCode":    code,
			"responseBody":    body,
			"responseHeaders": headers,
			"completedAt":     time.Now().UTC(),
		},
		"$unset": bson.M{"lockedAt": ""},
	}

	_, err = r.col.UpdateOne(ctx, bson.M{"_id": objID}, update)
	return err
}

func (r *MongoKeyRepository) Get(ctx context.Context, key, serviceID string) (*KeyRecord, error) {
	var record KeyRecord
	err := r.col.FindOne(ctx, bson.M{"serviceId": serviceID, "key": key}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *MongoKeyRepository) Clean(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.col.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lt": before}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *MongoKeyRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "serviceId", Value: 1}, {Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_service_key"),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_ttl"),
		},
		{
			Keys:    bson.D{{Key: "lockedAt", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("idx_locked"),
		},
	})
	return err
}

// MongoMessageRepository is the MongoDB-backed MessageRepository.
type MongoMessageRepository struct {
	col *mongo.Collection
}

func NewMongoMessageRepository(db *mongo.Database) *MongoMessageRepository {
	return &MongoMessageRepository{col: db.Collection(messagesCollection)}
}

func (r *MongoMessageRepository) MarkProcessed(ctx context.Context, record *MessageRecord) error {
	_, err := r.col.InsertOne(ctx, record)
	if mongo.IsDuplicateKeyError(err) {
		return ErrMessageAlreadyProcessed
	}
	return err
}

func (r *MongoMessageRepository) IsProcessed(ctx context.Context, messageID, topic, consumerGroup string) (bool, error) {
	filter := bson.M{
		"messageId":     messageID,
		"topic":         topic,
		"consumerGroup": consumerGroup,
	}

	count, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *MongoMessageRepository) Clean(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.col.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lt": before}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *MongoMessageRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "messageId", Value: 1}, {Key: "topic", Value: 1}, {Key: "consumerGroup", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_msg_topic_group"),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_ttl"),
		},
	})
	return err
}

// InitializeIndexes creates the indexes for both idempotency collections.
// Services call this once at startup, before serving requests.
func InitializeIndexes(ctx context.Context, db *mongo.Database) error {
	if err := NewMongoKeyRepository(db).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("create %s indexes: %w", keysCollection, err)
	}
	if err := NewMongoMessageRepository(db).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("create %s indexes: %w", messagesCollection, err)
	}
	return nil
}
