// Package main is the entry point for the call trust server.
// It provides a REST API for call session initiation, mutual verification-code
// confirmation, abuse reporting with reputation scoring, and an append-only
// audit ledger for investigation.
//
// Architecture:
//   - Both call participants see the same short-lived 6-digit code; the call
//     is marked verified only when both independently confirm it
//   - Abuse reports erode the reported user's reputation score and flag the
//     call and, past a threshold, the user for manual review
//   - Every state-changing operation appends to the audit ledger after its
//     primary commit; the ledger is never updated or deleted
//   - Media transport is an external provider addressed by the opaque call_id
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eazylink/calltrust-server/internal/config"
	"github.com/eazylink/calltrust-server/internal/database"
	"github.com/eazylink/calltrust-server/internal/handlers"
	"github.com/eazylink/calltrust-server/internal/middleware"
	"github.com/eazylink/calltrust-server/internal/migrate"
	"github.com/eazylink/calltrust-server/internal/repository"
	"github.com/eazylink/calltrust-server/internal/repository/memory"
	"github.com/eazylink/calltrust-server/internal/repository/postgres"
	"github.com/eazylink/calltrust-server/internal/services"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("Failed to load config: %v", err)
	}

	sugar.Infow("Starting call trust server",
		"port", cfg.Port,
		"env", cfg.Environment,
		"store", cfg.StoreBackend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Wire the record store
	var (
		sessions   repository.SessionRepository
		reputation repository.ReputationRepository
		reports    repository.ReportRepository
		audit      repository.AuditRepository
		users      repository.UserDirectory
		pinger     handlers.Pinger = handlers.NoopPinger{}
	)
	switch cfg.StoreBackend {
	case "postgres":
		if err := migrate.Up(ctx, cfg.DatabaseURL); err != nil {
			sugar.Fatalf("Failed to run migrations: %v", err)
		}
		pool, err := database.NewPool(cfg.DatabaseURL)
		if err != nil {
			sugar.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()
		db := postgres.New(pool)
		sessions = postgres.NewSessionRepo(db)
		reputation = postgres.NewReputationRepo(db)
		reports = postgres.NewReportRepo(db)
		audit = postgres.NewAuditRepo(db)
		users = postgres.NewUserDirectory(db)
		pinger = pool
	case "memory":
		store := memory.NewStore()
		sessions = store.Sessions()
		reputation = store.Reputation()
		reports = store.Reports()
		audit = store.Audit()
		users = store.Users()
	}

	// Redis backs the rate limiter
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		sugar.Fatalf("Invalid REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	// Initialize services
	auditSvc := services.NewAuditService(audit, sugar)
	reputationSvc := services.NewReputationService(reputation, cfg.Trust, sugar)
	trustSvc := services.NewTrustService(sessions, users, reputationSvc, auditSvc, cfg.Trust, sugar)
	reportSvc := services.NewReportService(sessions, reports, reputationSvc, auditSvc, sugar)
	rtcSvc := services.NewRTCTokenService(trustSvc, cfg.RTCAppID, cfg.RTCSecret, cfg.RTCTokenTTL, sugar)

	// Initialize handlers
	callHandler := handlers.NewCallHandler(trustSvc, reportSvc, sugar)
	auditHandler := handlers.NewAuditHandler(auditSvc, reportSvc, sugar)
	rtcHandler := handlers.NewRTCHandler(rtcSvc, sugar)
	healthHandler := handlers.NewHealthHandler(pinger, sugar)

	// Build router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// API Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", healthHandler.Check)
		r.Get("/health/ready", healthHandler.Ready)

		// Call trust endpoints (authenticated actor required)
		r.Route("/calls", func(r chi.Router) {
			r.Use(middleware.RequireActor(cfg.JWTSecret))
			r.Use(middleware.RateLimit(rdb, cfg.RateLimitRPM, sugar))
			r.Post("/initiate", callHandler.Initiate)
			r.Get("/history", callHandler.History)
			r.Get("/{callID}/verification-code", callHandler.Code)
			r.Post("/{callID}/confirm-code", callHandler.Confirm)
			r.Post("/{callID}/end", callHandler.End)
			r.Post("/{callID}/report", callHandler.Report)
		})

		// Media provider channel tokens
		r.Route("/rtc", func(r chi.Router) {
			r.Use(middleware.RequireActor(cfg.JWTSecret))
			r.Use(middleware.RateLimit(rdb, cfg.RateLimitRPM, sugar))
			r.Post("/token", rtcHandler.Token)
		})

		// Investigation tooling over the audit ledger
		r.Route("/audit", func(r chi.Router) {
			r.Use(middleware.RequireActor(cfg.JWTSecret))
			r.Get("/recent", auditHandler.Recent)
			r.Get("/user/{userID}", auditHandler.ByUser)
			r.Get("/reports/{userID}", auditHandler.ReportsAgainstUser)
		})
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sugar.Infof("Server listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Fatalf("Forced shutdown: %v", err)
	}

	sugar.Info("Server stopped")
}
