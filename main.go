package main

import (
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"pocketchat/database"
	"pocketchat/handlers"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	}

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Database
	if err := database.Initialize(); err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}

	// Feed hub
	go handlers.RunHub()

	// Start server
	log.Printf("🚀 pocketchat server starting on http://localhost:%s\n", port)
	log.Println("✅ Anonymous sign-in, shared room, live feed enabled")

	if err := http.ListenAndServe(":"+port, handlers.NewRouter()); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
