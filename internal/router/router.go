package router

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"revi-backend/internal/handlers"
	"revi-backend/internal/metrics"
	"revi-backend/internal/middleware"
	"revi-backend/internal/models"
)

// Deps is everything the HTTP surface is built from.
type Deps struct {
	Logger        *slog.Logger
	Metrics       metrics.Recorder
	MetricsHandle http.Handler
	Resolver      middleware.TokenResolver
	AuthLimiter   *middleware.RateLimiter
	GenLimiter    *middleware.RateLimiter
	FrontendURLs  []string

	Decks     *handlers.DeckHandler
	Generate  *handlers.GenerateHandler
	Reviews   *handlers.ReviewHandler
	Analytics *handlers.AnalyticsHandler
	Accounts  *handlers.AccountHandler
}

func New(d Deps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(d.Logger))
	r.Use(middleware.Metrics(d.Metrics))
	r.Use(middleware.Recovery(d.Logger))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Revi API is running!"})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.MetricsHandle != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandle)
	}

	r.Route("/api", func(r chi.Router) {
		// ──── Auth (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(d.AuthLimiter.Middleware)
			r.Post("/signup", d.Accounts.SignUp)
			r.Post("/login", d.Accounts.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(d.Resolver, d.Logger))

			// ──── Decks & Cards ────
			r.Route("/decks", func(r chi.Router) {
				r.Get("/", d.Decks.List)
				r.Post("/", d.Decks.Create)
				r.Delete("/", d.Decks.DeleteMany)
				r.Get("/{id}", d.Decks.Get)
				r.Delete("/{id}", d.Decks.Delete)
			})
			r.Post("/cards", d.Decks.CreateCard)
			r.Put("/cards/{id}", d.Decks.UpdateCard)
			r.Delete("/cards/{id}", d.Decks.DeleteCard)

			// ──── Generation ────
			r.Group(func(r chi.Router) {
				r.Use(d.GenLimiter.Middleware)
				r.Post("/upload-file", d.Generate.UploadFile)
				r.Post("/generate-flashcards", d.Generate.FromText)
			})

			// ──── Reviews & Analytics ────
			r.Post("/review-sessions", d.Reviews.Record)
			r.Get("/history", d.Reviews.History)
			r.Route("/analytics", func(r chi.Router) {
				r.Get("/overview", d.Analytics.Overview)
				r.Get("/dashboard", d.Analytics.Dashboard)
				r.Get("/activity", d.Analytics.Activity)
				r.Get("/decks/{id}", d.Analytics.DeckPerformance)
			})

			// ──── Account ────
			r.Delete("/account", d.Accounts.Delete)
			r.Put("/account/password", d.Accounts.ChangePassword)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Route not found", Path: r.URL.Path})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, models.ErrorResponse{Error: "Method not allowed", Path: r.URL.Path})
	})

	return cors.New(cors.Options{
		AllowedOrigins:   d.FrontendURLs,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-User-Id"},
		AllowCredentials: true,
		MaxAge:           86400,
	}).Handler(r)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
