package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/warehouse-ops/fulfillment-service/internal/domain"
)

// Migration tool to extract embedded restock, edit and delete history
// from legacy inventory documents into the dedicated audit collections

var (
	mongoURI     = flag.String("mongo-uri", "mongodb://localhost:27017", "MongoDB connection URI")
	dbName       = flag.String("db", "fulfillment_db", "Database name")
	dryRun       = flag.Bool("dry-run", true, "Dry run mode (no actual writes)")
	batchSize    = flag.Int("batch-size", 100, "Batch size for processing")
	removeArrays = flag.Bool("remove-arrays", false, "Remove embedded arrays from inventory documents after migration")
)

// legacy embedded forms older deployments stored inside inventory documents

type legacyRestockEntry struct {
	Quantity    int       `bson:"quantity"`
	NewQuantity int       `bson:"newQuantity"`
	RestockedBy string    `bson:"restockedBy"`
	Notes       string    `bson:"notes,omitempty"`
	RestockedAt time.Time `bson:"restockedAt"`
}

type legacyEditEntry struct {
	OldName     string    `bson:"oldName"`
	NewName     string    `bson:"newName"`
	OldQuantity int       `bson:"oldQuantity"`
	NewQuantity int       `bson:"newQuantity"`
	EditedBy    string    `bson:"editedBy"`
	EditedAt    time.Time `bson:"editedAt"`
}

type legacyDeleteEntry struct {
	ProductName string    `bson:"productName"`
	Quantity    int       `bson:"quantity"`
	Reason      string    `bson:"reason,omitempty"`
	DeletedBy   string    `bson:"deletedBy"`
	DeletedAt   time.Time `bson:"deletedAt"`
}

type inventoryDocument struct {
	ProductID      string               `bson:"productId"`
	TenantID       string               `bson:"tenantId"`
	ProductName    string               `bson:"productName"`
	RestockHistory []legacyRestockEntry `bson:"restockHistory,omitempty"`
	EditLog        []legacyEditEntry    `bson:"editLog,omitempty"`
	DeleteLog      []legacyDeleteEntry  `bson:"deleteLog,omitempty"`
}

func main() {
	flag.Parse()

	log.Printf("Starting audit history migration...")
	log.Printf("MongoDB URI: %s", *mongoURI)
	log.Printf("Database: %s", *dbName)
	log.Printf("Dry Run: %v", *dryRun)
	log.Printf("Batch Size: %d", *batchSize)
	log.Printf("Remove Arrays: %v", *removeArrays)

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

	if err := migrateAuditHistory(context.Background(), db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
}

func migrateAuditHistory(ctx context.Context, db *mongo.Database) error {
	inventoryColl := db.Collection("inventory")
	restocksColl := db.Collection("restock_history")
	editsColl := db.Collection("edit_logs")
	deletesColl := db.Collection("delete_logs")

	var (
		totalDocs     int64
		totalRestocks int64
		totalEdits    int64
		totalDeletes  int64
		docsWithData  int64
	)

	count, err := inventoryColl.CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to count documents: %w", err)
	}
	log.Printf("Found %d inventory documents to process", count)

	opts := options.Find().SetBatchSize(int32(*batchSize))
	cursor, err := inventoryColl.Find(ctx, bson.M{}, opts)
	if err != nil {
		return fmt.Errorf("failed to query inventory: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc inventoryDocument
		if err := cursor.Decode(&doc); err != nil {
			log.Printf("WARNING: Failed to decode document: %v", err)
			continue
		}

		totalDocs++
		if len(doc.RestockHistory)+len(doc.EditLog)+len(doc.DeleteLog) > 0 {
			docsWithData++
		}

		for _, entry := range doc.RestockHistory {
			totalRestocks++

			record := &domain.RestockHistory{
				LogID:       uuid.NewString(),
				TenantID:    doc.TenantID,
				ProductID:   doc.ProductID,
				ProductName: doc.ProductName,
				Quantity:    entry.Quantity,
				NewQuantity: entry.NewQuantity,
				RestockedBy: entry.RestockedBy,
				Notes:       entry.Notes,
				RestockedAt: entry.RestockedAt,
			}

			if !*dryRun {
				if _, err := restocksColl.InsertOne(ctx, record); err != nil {
					log.Printf("WARNING: Failed to insert restock record for %s: %v", doc.ProductID, err)
				}
			}
		}

		for _, entry := range doc.EditLog {
			totalEdits++

			record := &domain.EditLog{
				LogID:       uuid.NewString(),
				TenantID:    doc.TenantID,
				ProductID:   doc.ProductID,
				OldName:     entry.OldName,
				NewName:     entry.NewName,
				OldQuantity: entry.OldQuantity,
				NewQuantity: entry.NewQuantity,
				EditedBy:    entry.EditedBy,
				EditedAt:    entry.EditedAt,
			}

			if !*dryRun {
				if _, err := editsColl.InsertOne(ctx, record); err != nil {
					log.Printf("WARNING: Failed to insert edit record for %s: %v", doc.ProductID, err)
				}
			}
		}

		for _, entry := range doc.DeleteLog {
			totalDeletes++

			productName := entry.ProductName
			if productName == "" {
				productName = doc.ProductName
			}
			record := &domain.DeleteLog{
				LogID:       uuid.NewString(),
				TenantID:    doc.TenantID,
				ProductID:   doc.ProductID,
				ProductName: productName,
				Quantity:    entry.Quantity,
				Reason:      entry.Reason,
				DeletedBy:   entry.DeletedBy,
				DeletedAt:   entry.DeletedAt,
			}

			if !*dryRun {
				if _, err := deletesColl.InsertOne(ctx, record); err != nil {
					log.Printf("WARNING: Failed to insert delete record for %s: %v", doc.ProductID, err)
				}
			}
		}

		// Remove arrays from the document once its entries are migrated
		if *removeArrays && !*dryRun {
			filter := bson.M{"tenantId": doc.TenantID, "productId": doc.ProductID}
			update := bson.M{
				"$unset": bson.M{
					"restockHistory": "",
					"editLog":        "",
					"deleteLog":      "",
				},
			}
			if _, err := inventoryColl.UpdateOne(ctx, filter, update); err != nil {
				log.Printf("WARNING: Failed to remove arrays from %s: %v", doc.ProductID, err)
			}
		}

		if totalDocs%100 == 0 {
			log.Printf("Processed %d/%d documents...", totalDocs, count)
		}
	}

	if err := cursor.Err(); err != nil {
		return fmt.Errorf("cursor error: %w", err)
	}

	fmt.Println("\n=== Migration Summary ===")
	fmt.Printf("Total Documents Processed: %d\n", totalDocs)
	fmt.Printf("Documents with embedded history: %d\n", docsWithData)
	fmt.Printf("Restock entries migrated: %d\n", totalRestocks)
	fmt.Printf("Edit entries migrated:    %d\n", totalEdits)
	fmt.Printf("Delete entries migrated:  %d\n", totalDeletes)

	if *dryRun {
		fmt.Println("\nDRY RUN MODE - No actual changes were made")
		fmt.Println("Run with -dry-run=false to perform actual migration")
	} else {
		fmt.Println("\nMigration completed successfully!")
		if *removeArrays {
			fmt.Println("Embedded arrays removed from inventory documents")
		} else {
			fmt.Println("Embedded arrays retained in inventory documents (backward compatibility)")
		}
	}

	return nil
}
