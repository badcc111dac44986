// server/internal/database/seeder.go
package database

import (
	"context"
	"log"
	"time"

	"agritrace-api-server/internal/auth"
	"agritrace-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// SeedAdmin creates the platform admin account on first boot.
func SeedAdmin(db *mongo.Database) error {
	userCollection := db.Collection(CollUsers)
	adminEmail := "admin@agritrace.local"

	count, err := userCollection.CountDocuments(context.Background(), bson.M{"email": adminEmail})
	if err != nil {
		return err
	}
	if count > 0 {
		log.Println("Admin already exists. Seeding skipped.")
		return nil
	}

	log.Println("Admin not found. Seeding...")
	hashedPassword, err := auth.HashPassword("adminpassword")
	if err != nil {
		return err
	}

	admin := models.User{
		Email:     adminEmail,
		Name:      "Platform Admin",
		Password:  hashedPassword,
		Role:      "admin",
		Status:    "active",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	_, err = userCollection.InsertOne(context.Background(), admin)
	if err != nil {
		return err
	}

	log.Println("Admin seeded successfully.")
	return nil
}
