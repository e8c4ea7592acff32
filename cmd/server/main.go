// Package main is the entry point for the SmartConverter API server.
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

	"github.com/Shimizu-Technology/smartconverter-api/internal/config"
	"github.com/Shimizu-Technology/smartconverter-api/internal/database"
	"github.com/Shimizu-Technology/smartconverter-api/internal/handlers"
	"github.com/Shimizu-Technology/smartconverter-api/internal/router"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/convert"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/htmlpdf"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/limiter"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/office"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/render"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/storage"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/webhook"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/worker"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// sweepInterval is how often expired results are removed.
const sweepInterval = time.Hour

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("🚀 SmartConverter API %s starting...", Version)

	// Step 1: Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	log.Printf("📋 Config loaded: port=%s, workers=%d, gin_mode=%s, max_upload=%dMB",
		cfg.Port, cfg.WorkerCount, cfg.GinMode, cfg.MaxUploadMB)

	os.Setenv("GIN_MODE", cfg.GinMode)

	// Step 2: Connect to Database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("✅ Database connected")

	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Step 3: Daily conversion limit
	var usage limiter.Store = db.UsageStore()
	if cfg.RedisURL != "" {
		client, err := limiter.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("❌ Failed to connect to Redis: %v", err)
		}
		defer client.Close()
		usage = limiter.NewRedisStore(client, "")
		log.Println("✅ Conversion limits stored in Redis")
	} else {
		log.Println("✅ Conversion limits stored in PostgreSQL")
	}
	lim := limiter.New(usage, cfg.ConversionLimit, cfg.LimiterLocation)
	if lim.Enabled() {
		log.Printf("🔢 Anonymous callers get %d conversions per day (%s)", lim.Limit(), cfg.LimiterLocation)
	} else {
		log.Println("⚠️  Daily conversion limit disabled")
	}

	// Step 4: Converters and result storage
	results, err := storage.New(cfg.ResultDir)
	if err != nil {
		log.Fatalf("❌ Failed to open result directory: %v", err)
	}
	results.StartSweeper(ctx, sweepInterval, cfg.ResultTTL)
	go expireConversions(ctx, db, cfg.ResultTTL)
	log.Printf("📁 Queued results kept in %s for %s", results.Dir(), cfg.ResultTTL)

	html := htmlpdf.NewConverter(htmlpdf.Options{
		ChromePath: cfg.ChromePath,
		NoSandbox:  os.Geteuid() == 0,
	})
	defer html.Close()

	soffice := office.NewConverter(cfg.SofficePath, office.DefaultTimeout)
	features := map[string]bool{
		"html_to_pdf":   true,
		"office_to_pdf": soffice.Available(),
		"pdf_to_jpg":    render.Available(),
	}
	if !features["office_to_pdf"] {
		log.Println("⚠️  LibreOffice not found (Word, Excel and PowerPoint to PDF disabled)")
	}
	if !features["pdf_to_jpg"] {
		log.Println("⚠️  Built without MuPDF (PDF to JPG disabled)")
	}

	svc := &convert.Service{
		HTML:   html,
		Office: soffice,
		Render: render.Options{DPI: float64(cfg.RenderDPI)},
	}

	// Step 5: Create and Start Worker Pool
	hooks := webhook.New(db, cfg.WebhookSecret)
	wp := worker.NewPool(cfg.WorkerCount, cfg.JobQueueSize, cfg.JobTimeout, db, svc, results)
	wp.SetNotifier(hooks)
	wp.Start()
	if cfg.WebhookSecret == "" {
		log.Println("⚠️  WEBHOOK_SECRET not set (webhooks are sent unsigned)")
	}

	if cfg.AdminAPIKey != "" {
		log.Println("✅ Admin API key configured (API key creation protected)")
	} else {
		log.Println("⚠️  No admin API key set (API key creation is open; set ADMIN_API_KEY in production)")
	}

	// Step 6: Setup HTTP Router
	h := handlers.NewHandler(db, wp, svc, results, lim, handlers.Settings{
		Version:        Version,
		JWTSecret:      cfg.JWTSecret,
		AdminAPIKey:    cfg.AdminAPIKey,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Features:       features,
	})
	r := router.Setup(h, db, lim, cfg.JWTSecret, cfg.AllowedOrigins, cfg.DefaultRateLimit)

	// Step 7: Start the HTTP Server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server listening on http://localhost:%s", cfg.Port)
		log.Printf("📖 API docs: http://localhost:%s/api/docs", cfg.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	// Step 8: Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("🛑 Received signal %v, shutting down gracefully...", sig)
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	// No new jobs can arrive now; let the queue drain within the deadline.
	if err := wp.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Workers stopped before the queue drained: %v", err)
	}
	if err := hooks.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Pending webhooks abandoned: %v", err)
	}

	log.Println("👋 Server stopped. Goodbye!")
}

// expireConversions clears the result paths the sweeper has deleted so
// their downloads answer 404 instead of failing on a missing file.
func expireConversions(ctx context.Context, db *database.DB, ttl time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := db.ExpireConversions(ctx, time.Now().Add(-ttl))
			if err != nil {
				log.Printf("⚠️  %v", err)
			} else if n > 0 {
				log.Printf("🧹 Expired %d conversion results", n)
			}
		}
	}
}
