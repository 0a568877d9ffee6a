package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"revi-backend/internal/config"
	"revi-backend/internal/database"
	"revi-backend/internal/handlers"
	"revi-backend/internal/logger"
	"revi-backend/internal/metrics"
	"revi-backend/internal/middleware"
	"revi-backend/internal/models"
	"revi-backend/internal/repository"
	"revi-backend/internal/router"
	"revi-backend/internal/services"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	// ──── Step 1: Load Environment Variables ────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.SetupDefault(os.Stdout, cfg.LogLevel)
	log.Info("starting Revi backend", slog.String("env", cfg.Env))

	// ──── Step 2: Run Database Migrations ────
	if cfg.RunMigrations {
		if err := database.MigrateUp(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		log.Info("database migrations applied")
	}

	// ──── Step 3: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	log.Info("postgres connected", slog.Bool("rls", cfg.DBRLS))

	// ──── Step 4: Initialize Redis (optional) ────
	rdb, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Warn("redis unavailable, rate limits are per instance", slog.String("error", err.Error()))
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
		log.Info("redis connected")
	}

	// ──── Step 5: Metrics ────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewCollector(reg)

	// ──── Step 6: Identity ────
	identity := services.NewIdentityProvider(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseServiceRoleKey, 10*time.Second)
	var resolver middleware.TokenResolver = identity
	if cfg.SupabaseJWTSecret != "" {
		resolver = middleware.NewJWTResolver(cfg.SupabaseJWTSecret)
		log.Info("verifying access tokens locally")
	}

	// ──── Step 7: LLM Providers ────
	var openRouter, gemini services.Completer
	if cfg.OpenRouterAPIKey != "" {
		openRouter = services.NewOpenRouterCompleter(cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL, referer(cfg.FrontendURLs), cfg.LLMTimeout)
	}
	if cfg.GeminiAPIKey != "" {
		gc, err := services.NewGeminiCompleter(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return fmt.Errorf("init gemini: %w", err)
		}
		defer gc.Close()
		gemini = gc
	}
	chain := services.BuildModelChain(cfg.LLMModels, openRouter, gemini, log)
	if len(chain) == 0 {
		log.Warn("no generation models configured, generation will return the fallback card")
	}

	// ──── Step 8: Services ────
	store := repository.NewStore(pool, cfg.DBRLS)
	scope := func(id *models.Identity) services.Store { return store.ForUser(id) }

	decks := services.NewDeckService(scope)
	reviews := services.NewReviewService(scope, rec, log)
	analytics := services.NewAnalyticsService(scope)
	accounts := services.NewAccountService(scope, identity, log)
	generator := services.NewCardGenerator(chain, rec, log)

	authLimiter := middleware.NewRateLimiter("auth", cfg.AuthRateLimit, time.Minute, rdb, rec, log)
	defer authLimiter.Stop()
	genLimiter := middleware.NewRateLimiter("generate", cfg.GenerateRateLimit, time.Minute, rdb, rec, log)
	defer genLimiter.Stop()

	// ──── Step 9: Start HTTP Server ────
	handler := router.New(router.Deps{
		Logger:        log,
		Metrics:       rec,
		MetricsHandle: metrics.Handler(reg),
		Resolver:      resolver,
		AuthLimiter:   authLimiter,
		GenLimiter:    genLimiter,
		FrontendURLs:  cfg.FrontendURLs,
		Decks:         handlers.NewDeckHandler(decks),
		Generate:      handlers.NewGenerateHandler(services.NewFileExtractService(), generator, log),
		Reviews:       handlers.NewReviewHandler(reviews, analytics),
		Analytics:     handlers.NewAnalyticsHandler(analytics),
		Accounts:      handlers.NewAccountHandler(accounts),
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      writeTimeout(cfg.LLMTimeout, len(chain)),
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Revi backend ready", slog.String("addr", "http://localhost:"+cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// referer is the attribution URL sent to OpenRouter.
func referer(frontendURLs []string) string {
	if len(frontendURLs) == 0 {
		return ""
	}
	return frontendURLs[0]
}

// writeTimeout leaves room for a generation request to walk the whole model chain.
func writeTimeout(llmTimeout time.Duration, steps int) time.Duration {
	d := llmTimeout*time.Duration(max(steps, 1)) + 30*time.Second
	return max(d, 60*time.Second)
}
