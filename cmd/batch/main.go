package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"shopbot/config"
	"shopbot/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg, err := config.LoadBatch()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	processor, err := services.NewBatchProcessor(db, cfg.OpenAIAPIKey)
	if err != nil {
		log.Fatalf("Failed to create batch processor: %v", err)
	}
	if err := processor.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("Failed to ensure summary schema: %v", err)
	}

	log.Println("Starting session summary batch service...")

	if err := processor.ProcessSessions(context.Background(), cfg.Window); err != nil {
		log.Printf("Error in initial processing: %v", err)
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for range ticker.C {
		log.Println("Starting scheduled batch processing...")
		if err := processor.ProcessSessions(context.Background(), cfg.Window); err != nil {
			log.Printf("Error processing sessions: %v", err)
		}
		log.Println("Batch processing completed")
	}
}
