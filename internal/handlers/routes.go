package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ruadoceu33/rua-do-ceu-api/internal/auth"
)

func RegisterRoutes(
	r *chi.Mux,
	authHandler *auth.AuthHandler,
	sessionHandler *SessionHandler,
	donationHandler *DonationHandler,
	historyHandler *HistoryHandler,
	referenceHandler *ReferenceHandler,
	apiKeyHandler *APIKeyHandler,
) {
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Initialize Huma API
	config := huma.DefaultConfig("Rua do Céu API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: "auth_token",
		},
		"apiKeyAuth": {
			Type: "apiKey",
			In:   "header",
			Name: "X-API-KEY",
		},
	}
	api := humachi.New(r, config)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Auth routes (plain handlers: both are redirects)
	r.Get("/auth/discord/login", authHandler.HandleLogin)
	r.Get("/auth/discord/callback", authHandler.HandleCallback)

	secured := func(o *huma.Operation) {
		o.Security = []map[string][]string{{"cookieAuth": {}}, {"apiKeyAuth": {}}}
	}

	huma.Get(api, "/me", authHandler.HandleMe, secured)

	// Roll-call sessions
	huma.Post(api, "/sessions", sessionHandler.HandleSubmit, secured)
	huma.Delete(api, "/sessions/{session_id}", sessionHandler.HandleDelete, secured)

	// Donations
	huma.Post(api, "/donations", donationHandler.HandleCreate, secured)
	huma.Get(api, "/donations", donationHandler.HandleList, secured)
	huma.Get(api, "/donations/{id}", donationHandler.HandleGet, secured)
	huma.Patch(api, "/donations/{id}/quantity", donationHandler.HandleRestock, secured)
	huma.Delete(api, "/donations/{id}", donationHandler.HandleDelete, secured)

	// History & reporting
	huma.Get(api, "/donations/{id}/history", historyHandler.HandleDonationHistory, secured)
	huma.Get(api, "/children/{id}/history", historyHandler.HandleChildHistory, secured)
	huma.Get(api, "/stock-summary", historyHandler.HandleStockSummary, secured)

	// Reference data
	huma.Post(api, "/locations", referenceHandler.HandleCreateLocation, secured)
	huma.Get(api, "/locations", referenceHandler.HandleListLocations, secured)
	huma.Post(api, "/children", referenceHandler.HandleCreateChild, secured)
	huma.Get(api, "/children", referenceHandler.HandleListChildren, secured)

	// API keys
	huma.Post(api, "/apikeys", apiKeyHandler.HandleCreate, secured)
	huma.Get(api, "/apikeys", apiKeyHandler.HandleList, secured)
	huma.Delete(api, "/apikeys/{id}", apiKeyHandler.HandleDelete, secured)
}
