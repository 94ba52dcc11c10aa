package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"gestorreportes/config"
	"gestorreportes/handler"
	"gestorreportes/kvstore"
	"gestorreportes/repository"
	"gestorreportes/routes"
	"gestorreportes/schema"
	"gestorreportes/service"
	"gestorreportes/storage"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Load configuration
	cfg := config.LoadConfig()
	if cfg.Backend.URL == "" || cfg.Backend.APIKey == "" {
		log.Fatal("SUPABASE_URL and SUPABASE_ANON_KEY are required")
	}
	if cfg.Session.AdminCode == "ADMIN2024" {
		log.Printf("Warning: ADMIN_CODE is the built-in placeholder; set it before sharing this device")
	}

	ctx := context.Background()

	// Hosted backend clients
	httpClient := &http.Client{}
	if cfg.Backend.HTTPTimeoutSeconds > 0 {
		httpClient.Timeout = time.Duration(cfg.Backend.HTTPTimeoutSeconds) * time.Second
	}
	rest := repository.NewRestClient(cfg.Backend.URL, cfg.Backend.APIKey, httpClient)

	objectStore, err := newObjectStore(ctx, cfg, httpClient)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}

	// Initialize repositories and services
	reportRepo := repository.NewReportRepository(rest, cfg.Report.City)
	attachmentRepo := repository.NewAttachmentRepository(rest, objectStore)
	reportService := service.NewReportService(reportRepo, attachmentRepo)

	sessionStore, closeStore, err := newSessionStore(ctx, cfg.Session)
	if err != nil {
		log.Fatalf("Failed to initialize session store: %v", err)
	}
	defer closeStore()
	sessionService := service.NewSessionService(sessionStore, cfg.Session.AdminCode)
	restored := sessionService.RestoreSession(ctx)
	if restored.Mode != "" {
		log.Printf("Session restored: %s (%s)", restored.Mode, restored.DisplayName())
	}

	// Setup routes
	router := routes.SetupRoutes(reportService, sessionService, handler.Location{
		Latitude:  cfg.Report.DefaultLatitude,
		Longitude: cfg.Report.DefaultLongitude,
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowCredentials: false,
		AllowedHeaders:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
	})

	// Start server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s (storage=%s, session=%s)", addr, cfg.Storage.Backend, cfg.Session.Store)
	log.Fatal(http.ListenAndServe(addr, c.Handler(router)))
}

func newObjectStore(ctx context.Context, cfg *config.Config, httpClient *http.Client) (repository.ObjectStore, error) {
	switch cfg.Storage.Backend {
	case "supabase", "":
		return storage.NewSupabaseStore(cfg.Backend.URL, cfg.Backend.APIKey, cfg.Storage.Bucket, httpClient), nil
	case "s3":
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:        cfg.Storage.Bucket,
			Endpoint:      cfg.Storage.S3Endpoint,
			Region:        cfg.Storage.S3Region,
			AccessKey:     cfg.Storage.S3AccessKey,
			SecretKey:     cfg.Storage.S3SecretKey,
			PublicBaseURL: cfg.Storage.S3PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.Storage.Backend)
	}
}

func newSessionStore(ctx context.Context, cfg config.SessionConfig) (kvstore.Store, func(), error) {
	switch cfg.Store {
	case "file", "":
		log.Printf("Session file: %s", cfg.FilePath)
		return kvstore.NewFileStore(cfg.FilePath), func() {}, nil
	case "redis":
		store := kvstore.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "gestorreportes:")
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		log.Println("Redis connection established")
		return store, func() { store.Close() }, nil
	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database connection: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}
		log.Println("Database connection established")
		schema.InitializeDatabase(db)
		schema.ValidateRequiredColumns(db, nil)
		return kvstore.NewMySQLStore(db), func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown SESSION_STORE %q", cfg.Store)
	}
}
