package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/Third-South-Capital/callscrape/internal/api"
	"github.com/Third-South-Capital/callscrape/internal/db"
)

func main() {
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}
	if os.Getenv("ADMIN_SECRET") == "" {
		log.Fatal("ADMIN_SECRET must be set")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	srv, err := api.NewServer(db.NewPostgresStore(pool))
	if err != nil {
		log.Fatalf("Failed to build server: %v", err)
	}
	log.Printf("Server starting on port %s...", port)
	if err := srv.Start(port); err != nil {
		log.Fatal(err)
	}
}
