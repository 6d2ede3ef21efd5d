/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the contract revenue server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment), apply flag overrides
  2. Initialize Sentry when SENTRY_DSN is set
  3. Initialize SQLite store (runs migrations)
  4. Wire text extraction (native readers + OCR chain) and the AI extractor
  5. Start the forward book snapshot scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: PORT or 8080)
  -db      SQLite database path (default: DB_PATH or contracts.db)
           Use ":memory:" for in-memory database

OCR:
  Azure Read is tried first when AZURE_VISION_ENDPOINT/KEY are set, then
  AWS Textract. Without either, scanned PDFs fail with a clear error.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler (waits for a running pass)
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Flush Sentry, close database connection

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/warp/contract-revenue/api"
	"github.com/warp/contract-revenue/config"
	"github.com/warp/contract-revenue/contract"
	"github.com/warp/contract-revenue/extract"
	"github.com/warp/contract-revenue/llm"
	"github.com/warp/contract-revenue/revenue"
	"github.com/warp/contract-revenue/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Flags override the environment
	port := flag.Int("port", cfg.Server.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.Database.Path, "SQLite database path")
	flag.Parse()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, AttachStacktrace: true}); err != nil {
			log.Printf("Warning: Sentry disabled: %v", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()
	log.Printf("Connected to database: %s", *dbPath)

	ocr := buildOCR(cfg)
	text := extract.NewRouter(ocr)

	var fields llm.FieldExtractor
	ai, err := llm.NewOpenAIExtractor(llm.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
	})
	switch {
	case err == nil:
		fields = ai
		log.Printf("AI field extraction enabled (model %s)", cfg.OpenAI.Model)
	case errors.Is(err, llm.ErrNotConfigured):
		log.Printf("Warning: OPENAI_API_KEY not set, uploads will fail until it is configured")
	default:
		log.Fatalf("Failed to configure AI extractor: %v", err)
	}

	svc := contract.NewService(store, text, fields, revenue.NewEngine(revenue.SystemClock))

	handler := api.NewHandler(svc)
	handler.MaxUploadBytes = cfg.Server.MaxUploadMB << 20
	if ocr != nil {
		handler.OCRName = ocr.Name()
	}

	var scheduler *api.ForwardBookScheduler
	if cfg.SnapshotSchedule != "" {
		scheduler = api.NewForwardBookScheduler(svc, cfg.SnapshotSchedule)
		if err := scheduler.Start(); err != nil {
			log.Fatalf("Failed to start snapshot scheduler: %v", err)
		}
		handler.Scheduler = scheduler
	}

	router := api.NewRouter(handler, api.RouterOptions{AllowedOrigins: cfg.CORS.AllowedOrigins})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute, // OCR polling on large scans
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// buildOCR chains the configured OCR backends, Azure first. It returns nil
// when none is configured.
func buildOCR(cfg *config.Config) extract.OCR {
	var chain extract.OCRChain

	if cfg.Azure.Enabled() {
		azure, err := extract.NewAzureReadOCR(extract.AzureReadConfig{
			Endpoint: cfg.Azure.Endpoint,
			Key:      cfg.Azure.Key,
			Tier:     extract.ParseTier(cfg.Azure.Tier),
		})
		if err != nil {
			log.Printf("Warning: Azure OCR disabled: %v", err)
		} else {
			chain = append(chain, azure)
			log.Printf("OCR: Azure Read (%s tier)", extract.ParseTier(cfg.Azure.Tier))
		}
	}

	if cfg.AWS.AccessKeyID != "" && cfg.AWS.SecretAccessKey != "" {
		sess, err := extract.NewTextractSession(cfg.AWS.Region, cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey)
		if err != nil {
			log.Printf("Warning: Textract disabled: %v", err)
		} else {
			chain = append(chain, extract.NewTextractOCR(sess))
			log.Printf("OCR: AWS Textract (%s)", cfg.AWS.Region)
		}
	}

	if len(chain) == 0 {
		log.Println("Warning: no OCR backend configured, scanned PDFs cannot be read")
		return nil
	}
	return chain
}
