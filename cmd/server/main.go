package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/go-chi/chi/v5"
	"github.com/ruadoceu33/rua-do-ceu-api/internal/auth"
	"github.com/ruadoceu33/rua-do-ceu-api/internal/config"
	"github.com/ruadoceu33/rua-do-ceu-api/internal/database"
	"github.com/ruadoceu33/rua-do-ceu-api/internal/handlers"
	"github.com/ruadoceu33/rua-do-ceu-api/internal/notifier"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()

	// Connect to Database
	db := database.Connect(cfg)

	// Initialize Notifier
	var discordNotifier notifier.Notifier
	if cfg.DiscordBotToken != "" {
		session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
		if err != nil {
			log.Printf("Discord notifier not initialized: %v", err)
		} else {
			discordNotifier = notifier.NewDiscordNotifier(session, cfg.DiscordNotificationsChannelID)
		}
	}

	// Initialize Handlers
	authHandler := auth.NewAuthHandler(cfg, db)
	sessionHandler := handlers.NewSessionHandler(db, discordNotifier, authHandler)
	donationHandler := handlers.NewDonationHandler(db, authHandler)
	historyHandler := handlers.NewHistoryHandler(db, authHandler)
	referenceHandler := handlers.NewReferenceHandler(db, authHandler)
	apiKeyHandler := handlers.NewAPIKeyHandler(db, authHandler)

	// Initialize Router
	r := chi.NewRouter()

	// Register Routes
	handlers.RegisterRoutes(r, authHandler, sessionHandler, donationHandler, historyHandler, referenceHandler, apiKeyHandler)

	// Start Server
	log.Printf("Starting server on port %s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
