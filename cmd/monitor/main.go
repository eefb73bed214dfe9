package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Document size monitoring tool for the product_returns collection.
// Long-running returns accumulate receiving and shipping log entries;
// this alerts when documents are approaching MongoDB's 16MB limit.
// Also reports outbox backlog so stuck publishers are visible.

var (
	mongoURI  = flag.String("mongo-uri", "mongodb://localhost:27017", "MongoDB connection URI")
	dbName    = flag.String("db", "fulfillment_db", "Database name")
	threshold = flag.Int("threshold", 8388608, "Alert threshold in bytes (default: 8MB)")
	limit     = flag.Int("limit", 50, "Maximum number of results to display")
)

const (
	MB16 = 16777216 // 16 MB in bytes
	MB8  = 8388608  // 8 MB in bytes
	MB5  = 5242880  // 5 MB in bytes
	MB1  = 1048576  // 1 MB in bytes
)

type DocumentSizeInfo struct {
	ReturnID       string `bson:"returnId"`
	Size           int    `bson:"size"`
	ReceivingCount int    `bson:"recvCount"`
	ShippingCount  int    `bson:"shipCount"`
}

func main() {
	flag.Parse()

	log.Printf("Starting document size monitoring...")
	log.Printf("MongoDB URI: %s", *mongoURI)
	log.Printf("Database: %s", *dbName)
	log.Printf("Alert Threshold: %d bytes (%.2f MB)", *threshold, float64(*threshold)/MB1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(*mongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	if err := client.Ping(ctx, nil); err != nil {
		log.Fatalf("Failed to ping MongoDB: %v", err)
	}
	log.Println("Connected to MongoDB successfully")

	db := client.Database(*dbName)

	if err := analyzeReturns(context.Background(), db); err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	if err := analyzeOutbox(context.Background(), db); err != nil {
		log.Fatalf("Outbox analysis failed: %v", err)
	}
}

func analyzeReturns(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection("product_returns")

	totalCount, err := collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to count documents: %w", err)
	}

	fmt.Printf("\n=== Collection: product_returns ===\n")
	fmt.Printf("Total Documents: %d\n\n", totalCount)

	pipeline := []bson.M{
		{
			"$project": bson.M{
				"returnId":  1,
				"size":      bson.M{"$bsonSize": "$$ROOT"},
				"recvCount": bson.M{"$size": bson.M{"$ifNull": []interface{}{"$receivingLog", []interface{}{}}}},
				"shipCount": bson.M{"$size": bson.M{"$ifNull": []interface{}{"$shippingLog", []interface{}{}}}},
			},
		},
		{
			"$match": bson.M{
				"size": bson.M{"$gte": *threshold},
			},
		},
		{
			"$sort": bson.M{"size": -1},
		},
		{
			"$limit": int64(*limit),
		},
	}

	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("failed to run aggregation: %w", err)
	}
	defer cursor.Close(ctx)

	var largeDocuments []DocumentSizeInfo
	if err := cursor.All(ctx, &largeDocuments); err != nil {
		return fmt.Errorf("failed to decode results: %w", err)
	}

	if len(largeDocuments) == 0 {
		fmt.Println("No documents exceed the threshold")
		return nil
	}

	fmt.Printf("Found %d documents exceeding %d bytes:\n\n", len(largeDocuments), *threshold)
	fmt.Println("Return ID                            Size (MB)   Receiving  Shipping  Status")
	fmt.Println("-----------------------------------  ----------  ---------  --------  --------")

	for _, doc := range largeDocuments {
		sizeMB := float64(doc.Size) / MB1
		fmt.Printf("%-35s  %10.2f  %9d  %8d  %s\n",
			doc.ReturnID,
			sizeMB,
			doc.ReceivingCount,
			doc.ShippingCount,
			getStatus(doc.Size),
		)
	}

	fmt.Println("\n=== Size Distribution ===")
	if err := analyzeSizeDistribution(ctx, collection); err != nil {
		log.Printf("WARNING: Failed to analyze distribution: %v", err)
	}

	fmt.Println("\n=== Recommendations ===")
	for _, doc := range largeDocuments {
		if doc.Size > MB8 {
			fmt.Printf("CRITICAL: return %s (%0.2f MB)\n", doc.ReturnID, float64(doc.Size)/MB1)
			if doc.ReceivingCount > 1000 {
				fmt.Printf("   - %d receiving entries: consider archiving closed-return logs to a history collection\n", doc.ReceivingCount)
			}
			if doc.ShippingCount > 1000 {
				fmt.Printf("   - %d shipping entries: consider archiving closed-return logs to a history collection\n", doc.ShippingCount)
			}
			fmt.Println()
		}
	}

	return nil
}

// analyzeOutbox reports unpublished and exhausted outbox events. A growing
// pending count means the publisher is down or Kafka is unreachable.
func analyzeOutbox(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection("outbox_events")

	pending, err := collection.CountDocuments(ctx, bson.M{"publishedAt": nil})
	if err != nil {
		return fmt.Errorf("failed to count pending events: %w", err)
	}

	exhausted, err := collection.CountDocuments(ctx, bson.M{
		"publishedAt": nil,
		"$expr":       bson.M{"$gte": []interface{}{"$retryCount", "$maxRetries"}},
	})
	if err != nil {
		return fmt.Errorf("failed to count exhausted events: %w", err)
	}

	fmt.Printf("\n=== Outbox Backlog ===\n")
	fmt.Printf("Pending events:   %d\n", pending)
	fmt.Printf("Retries exhausted: %d\n", exhausted)

	if exhausted > 0 {
		fmt.Println("\nWARNING: events have exhausted retries and will not be published")
		fmt.Println("Inspect lastError on the affected documents and reset retryCount to replay")
	}

	return nil
}

func analyzeSizeDistribution(ctx context.Context, collection *mongo.Collection) error {
	pipeline := []bson.M{
		{
			"$project": bson.M{
				"size": bson.M{"$bsonSize": "$$ROOT"},
			},
		},
		{
			"$bucket": bson.M{
				"groupBy": "$size",
				"boundaries": []int{
					0,
					MB1,
					MB5,
					MB8,
					MB16,
				},
				"default": "16MB+",
				"output": bson.M{
					"count": bson.M{"$sum": 1},
				},
			},
		},
	}

	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	type BucketResult struct {
		ID    interface{} `bson:"_id"`
		Count int         `bson:"count"`
	}

	var results []BucketResult
	if err := cursor.All(ctx, &results); err != nil {
		return err
	}

	for _, result := range results {
		var label string
		switch result.ID {
		case 0:
			label = "0-1 MB"
		case MB1:
			label = "1-5 MB"
		case MB5:
			label = "5-8 MB"
		case MB8:
			label = "8-16 MB"
		default:
			label = fmt.Sprintf("%v", result.ID)
		}
		fmt.Printf("  %s: %d documents\n", label, result.Count)
	}

	return nil
}

func getStatus(size int) string {
	if size >= 12*MB1 {
		return "URGENT"
	} else if size >= MB8 {
		return "WARNING"
	} else if size >= MB5 {
		return "CAUTION"
	}
	return "OK"
}
