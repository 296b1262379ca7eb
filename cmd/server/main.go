// Package main is the entry point for the Placement Finder API server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Shimizu-Technology/placement-finder-api/internal/cache"
	"github.com/Shimizu-Technology/placement-finder-api/internal/config"
	"github.com/Shimizu-Technology/placement-finder-api/internal/database"
	"github.com/Shimizu-Technology/placement-finder-api/internal/handlers"
	"github.com/Shimizu-Technology/placement-finder-api/internal/router"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/placement"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/quota"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/worker"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/ytapi"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("🚀 Placement Finder API %s starting...", Version)

	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err == nil {
		log.Println("📋 Loaded .env")
	}

	// Step 1: Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	log.Printf("📋 Config loaded: port=%s, workers=%d, gin_mode=%s, ledger=%s", cfg.Port, cfg.WorkerCount, cfg.GinMode, cfg.LedgerBackend)

	os.Setenv("GIN_MODE", cfg.GinMode)

	// Step 2: Usage ledger (CSV file or postgres)
	var (
		ledger       quota.Store
		ledgerHealth func(context.Context) error
	)
	switch cfg.LedgerBackend {
	case config.LedgerPostgres:
		db, err := database.New(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("❌ Failed to connect to database: %v", err)
		}
		defer db.Close()
		log.Println("✅ Database connected")

		if err := db.RunMigrations(); err != nil {
			log.Fatalf("❌ Migration failed: %v", err)
		}
		ledger = database.NewUsageStore(db)
		ledgerHealth = db.HealthCheck
	default:
		ledger = quota.NewFileStore(cfg.UsageLogPath)
		log.Printf("📒 Usage ledger: %s", cfg.UsageLogPath)
	}
	meter := quota.NewMeter(ledger)

	// Step 3: Caches and services
	store := cache.New(cache.Options{
		RedisURL:        cfg.RedisURL,
		MaxEntries:      cfg.CacheMaxEntries,
		CleanupInterval: 5 * time.Minute,
	})
	defer store.Close()
	cacheBackend := "memory"
	if store.Distributed() {
		cacheBackend = "memory+redis"
	}

	finder := placement.NewFinder(store, meter, placement.Options{
		ChannelTTL: cfg.ChannelCacheTTL,
		ResultTTL:  cfg.ResultCacheTTL,
		Usage:      meter,
		DailyLimit: cfg.DailyQuotaLimit,
	})
	newAPI := ytapi.NewFactory(cfg.RequestsPerSecond)

	if cfg.YouTubeAPIKey != "" {
		log.Println("✅ Default YouTube Data API key configured")
	} else {
		log.Println("⚠️  No YOUTUBE_API_KEY set; callers must send X-YouTube-API-Key")
	}

	// Step 4: Create and Start Worker Pool
	jobs := worker.NewJobStore()
	wp := worker.NewPool(cfg.WorkerCount, cfg.JobQueueSize, jobs, finder, newAPI, cfg.ExportDir)
	wp.Start()
	defer wp.Stop()

	if cfg.AdminAPIKey != "" {
		log.Println("✅ Admin API key configured (usage log export enabled)")
	} else {
		log.Println("⚠️  No admin API key set (usage log export disabled)")
	}

	// Step 5: Setup HTTP Router
	handlers.Version = Version
	h := &handlers.Handler{
		Finder:          finder,
		Meter:           meter,
		Worker:          wp,
		Jobs:            jobs,
		NewAPI:          newAPI,
		YouTubeAPIKey:   cfg.YouTubeAPIKey,
		DefaultRegion:   cfg.DefaultRegion,
		DailyQuotaLimit: cfg.DailyQuotaLimit,
		JWTSecret:       cfg.JWTSecret,
		LedgerBackend:   cfg.LedgerBackend,
		LedgerHealth:    ledgerHealth,
		CacheBackend:    cacheBackend,
	}
	r := router.Setup(h, router.Options{
		JWTSecret:      cfg.JWTSecret,
		AdminAPIKey:    cfg.AdminAPIKey,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      cfg.DefaultRateLimit,
		OwnerActorID:   cfg.OwnerActorID,
	})

	// Step 6: Start the HTTP Server
	// A search can page through hundreds of results, so writes get time.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server listening on http://localhost:%s", cfg.Port)
		log.Printf("📖 Health check: http://localhost:%s/api/v1/health", cfg.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	// Step 7: Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("🛑 Received signal %v, shutting down gracefully...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	log.Println("👋 Server stopped. Goodbye!")
}
