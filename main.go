package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"shopbot/config"
	"shopbot/controllers"
	"shopbot/routes"
	"shopbot/services"
)

func main() {
	// Missing .env is fine in deployed environments; config falls back to
	// real environment variables.
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg, err := config.Load()
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

	history := services.NewHistoryService(db)
	if err := history.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("Failed to ensure chat history schema: %v", err)
	}

	catalog := services.NewCatalogService(db)
	gemini := services.NewGeminiService(cfg)
	sessions := services.NewSessionRegistry(gemini, cfg.SessionIdleTTL)
	defer sessions.Close()
	chat := services.NewChatService(catalog, history, sessions)

	controller := controllers.NewChatController(chat, history, sessions)
	router := routes.SetupRouter(controller)

	addr := ":" + cfg.Port
	log.Printf("Server starting on port %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
