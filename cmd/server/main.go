// Package main is the entry point for the PayFlow API server.
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

	"github.com/payflow/payflow-api/internal/config"
	"github.com/payflow/payflow-api/internal/database"
	"github.com/payflow/payflow-api/internal/router"
	"github.com/payflow/payflow-api/internal/services/links"
	"github.com/payflow/payflow-api/internal/services/mailer"
	"github.com/payflow/payflow-api/internal/services/pipeline"
	"github.com/payflow/payflow-api/internal/services/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("🚀 PayFlow API %s starting...", Version)

	// Step 1: Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	log.Printf("📋 Config loaded: port=%s, gin_mode=%s, link_expiry=%dd, max_attempts=%d",
		cfg.Port, cfg.GinMode, cfg.LinkExpiryDays, cfg.MaxDownloadAttempts)

	os.Setenv("GIN_MODE", cfg.GinMode)

	// Step 2: Connect to Database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("✅ Database connected")

	// Run migrations
	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	// Step 3: Create Services
	store, err := storage.New(cfg.UploadDir, cfg.OutputDir)
	if err != nil {
		log.Fatalf("❌ Failed to prepare storage: %v", err)
	}
	log.Printf("✅ Storage ready: uploads=%s output=%s", cfg.UploadDir, cfg.OutputDir)

	linksSvc := links.New(db, cfg.MaxDownloadAttempts, cfg.LinkExpiryDays)

	mailerSvc := mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom, cfg.PublicBaseURL)
	if mailerSvc.Enabled() {
		log.Println("✅ Mailer configured")
	} else {
		log.Println("⚠️  No SMTP host set — notifications will be skipped (links stay retrievable via admin)")
	}

	runner := pipeline.New(db, linksSvc, mailerSvc, store)

	// Step 4: Setup HTTP Router
	r := router.Setup(db, runner, linksSvc, mailerSvc, store, cfg)

	// Step 5: Start the HTTP Server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // a pipeline run lives inside one request
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server listening on http://localhost:%s", cfg.Port)
		log.Printf("📖 Health check: http://localhost:%s/api/v1/health", cfg.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	// Step 6: Graceful Shutdown
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
