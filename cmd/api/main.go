// server/cmd/api/main.go
package main

import (
	"context"
	"log"

	"agritrace-api-server/config"
	"agritrace-api-server/internal/api/routes"
	"agritrace-api-server/internal/auth"
	"agritrace-api-server/internal/database"
	"agritrace-api-server/internal/ledger"
	"agritrace-api-server/internal/provenance"
	"agritrace-api-server/internal/qrencode"
	"agritrace-api-server/internal/s3"
	"agritrace-api-server/internal/socket"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load .env (if present) and configuration
	_ = godotenv.Load()
	cfg, err := config.LoadConfig("./config")
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}
	auth.JwtSecret = []byte(cfg.JWT.Secret)

	// 2. Connect to MongoDB and prepare indexes
	db, err := database.Connect(cfg.Mongo)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.EnsureIndexes(context.Background(), db); err != nil {
		log.Fatalf("Failed to ensure indexes: %v", err)
	}
	if err := database.SeedAdmin(db); err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}

	// 3. Assemble the provenance engine
	service := provenance.NewService(database.NewStore(db), qrencode.New(), provenance.ServiceConfig{
		BaseURL:      cfg.App.BaseURL,
		DefaultState: cfg.App.DefaultState,
		ValidityDays: cfg.App.CodeValidityDays,
	})

	// 4. Optional collaborators: S3 image mirror and Fabric ledger anchor
	if cfg.S3.Bucket != "" {
		uploader, err := s3.NewUploader(cfg.S3)
		if err != nil {
			log.Fatalf("Failed to initialize S3 uploader: %v", err)
		}
		service.Mirror = uploader
	}
	if cfg.Fabric.Enabled {
		anchor, err := ledger.Initialize(cfg.Fabric)
		if err != nil {
			log.Fatalf("Failed to initialize Fabric ledger: %v", err)
		}
		defer anchor.Close()
		service.Anchor = anchor
	}

	// 5. WebSocket hub for the live scan feed
	wsHub := socket.NewHub()

	// 6. Router
	router := routes.SetupRouter(cfg, db, service, wsHub)

	// 7. Start server
	log.Printf("Starting API server on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
