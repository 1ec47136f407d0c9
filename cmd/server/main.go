// Package main is the entry point for the Learn Smart API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/learnsmart-api/internal/config"
	"github.com/Shimizu-Technology/learnsmart-api/internal/database"
	"github.com/Shimizu-Technology/learnsmart-api/internal/handlers"
	"github.com/Shimizu-Technology/learnsmart-api/internal/logger"
	"github.com/Shimizu-Technology/learnsmart-api/internal/middleware"
	"github.com/Shimizu-Technology/learnsmart-api/internal/router"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/answer"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/cache"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/extract"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/genai"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/localmodel"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/session"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/summary"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/worker"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	// Step 1: Load Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("🚀 Learn Smart API starting", "version", Version)
	log.Info("📋 Config loaded",
		"port", cfg.Port, "workers", cfg.WorkerCount, "gin_mode", cfg.GinMode,
		"ai_mode", cfg.AIMode, "pdf_strategy", cfg.PDFStrategy, "database", cfg.DatabaseDriver)

	gin.SetMode(cfg.GinMode)

	// Step 2: Connect to Database
	db, err := database.New(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("❌ Failed to connect to database", "error", err)
	}
	defer db.Close()
	log.Info("✅ Database connected", "driver", db.Driver())

	if err := db.RunMigrations(log); err != nil {
		log.Fatal("❌ Migration failed", "error", err)
	}

	// Step 3: Create Services
	var summaryCache cache.Store = cache.NewMemory()
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rc, err := cache.NewRedis(ctx, cfg.RedisURL, "learnsmart:")
		cancel()
		if err != nil {
			log.Warn("⚠️  Redis unavailable, using in-process summary cache", "error", err)
		} else {
			summaryCache = rc
			log.Info("✅ Redis summary cache connected")
		}
	}
	defer summaryCache.Close()

	gemini := genai.New(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL, cfg.AITimeout)
	loader := localmodel.NewLoader(cfg.LocalModelURL, cfg.LocalModelFallbackURL, cfg.AITimeout, log)

	switch cfg.AIMode {
	case config.AIModeRemote:
		if gemini.Configured() {
			log.Info("✅ Remote AI enabled", "model", gemini.Model())
		} else {
			log.Warn("⚠️  GEMINI_API_KEY not set; summaries fall back to previews and questions fail")
		}
	case config.AIModeLocal:
		log.Info("✅ Local AI enabled (loaded on first use)", "endpoint", cfg.LocalModelURL)
	}

	summarizer := summary.New(summary.Options{
		Mode:     cfg.AIMode,
		Remote:   gemini,
		Local:    loader,
		Cache:    summaryCache,
		CacheTTL: cfg.SummaryCacheTTL,
		Log:      log,
	})
	answerer := answer.New(answer.Options{
		Mode:   cfg.AIMode,
		Remote: gemini,
		Local:  loader,
		Log:    log,
	})

	pdfBackend, err := extract.NewPDFBackend(cfg.PDFStrategy, cfg.PDFServiceURL, cfg.AITimeout)
	if err != nil {
		log.Fatal("❌ Invalid PDF strategy", "error", err)
	}
	extractor := extract.New(pdfBackend, log)

	// Step 4: Create and Start Worker Pool
	wp := worker.NewPool(cfg.WorkerCount, cfg.JobQueueSize, db, summarizer, log)
	sessions := session.New(db, extractor, answerer, wp, cfg.AIMode, log)
	wp.SetCompletionHook(sessions.JobCompleted) // releases the session's upload flag
	wp.Start()

	// Step 5: Setup HTTP Router
	h := handlers.NewHandler(handlers.Deps{
		DB:             db,
		Worker:         wp,
		Sessions:       sessions,
		Extractor:      extractor,
		Summary:        summarizer,
		Answer:         answerer,
		JWTSecret:      cfg.JWTSecret,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		AIMode:         cfg.AIMode,
		Log:            log,
	})
	rateLimiter := middleware.NewRateLimiter(cfg.DefaultRateLimit)
	defer rateLimiter.Close()

	r := router.Setup(h, rateLimiter, cfg.JWTSecret, cfg.AllowedOrigins, log)

	// Step 6: Start the HTTP Server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  60 * time.Second, // large uploads
		WriteTimeout: 2 * cfg.AITimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info(fmt.Sprintf("🌐 Server listening on http://localhost:%s", cfg.Port))
		log.Info(fmt.Sprintf("📖 API docs: http://localhost:%s/api/docs", cfg.Port))

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("❌ Server failed", "error", err)
		}
	}()

	// Step 7: Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Info("🛑 Shutting down gracefully...", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("⚠️  Server forced to shutdown", "error", err)
	}

	// Finish queued summaries after the last request is served.
	wp.Stop()

	log.Info("👋 Server stopped. Goodbye!")
}
