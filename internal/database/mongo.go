// server/internal/database/mongo.go
package database

import (
	"context"
	"fmt"
	"time"

	"agritrace-api-server/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names used across the server.
const (
	CollUsers    = "users"
	CollHarvests = "harvests"
	CollCodes    = "qrcodes"
	CollScans    = "qrcode_scans"
)

// Connect opens the Mongo client and pings the deployment.
func Connect(cfg config.MongoConfig) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client.Database(cfg.DBName), nil
}

// EnsureIndexes creates the indexes the QR code engine relies on. Code
// uniqueness is enforced here at the storage layer, not just in application
// logic.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(CollUsers).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("creating users index: %w", err)
	}

	_, err = db.Collection(CollHarvests).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "batchID", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "farmerID", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("creating harvests indexes: %w", err)
	}

	_, err = db.Collection(CollCodes).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "harvestID", Value: 1}}},
		{Keys: bson.D{{Key: "batchID", Value: 1}}},
		{Keys: bson.D{{Key: "farmerID", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("creating qrcodes indexes: %w", err)
	}

	_, err = db.Collection(CollScans).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "codeID", Value: 1}, {Key: "scannedAt", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("creating scan log index: %w", err)
	}
	return nil
}
