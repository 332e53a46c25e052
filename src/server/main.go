package main

import (
	"log"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/campuslink/server/src/server/config"
	"github.com/campuslink/server/src/server/describe"
	"github.com/campuslink/server/src/server/engine"
	"github.com/campuslink/server/src/server/handlers"
	"github.com/campuslink/server/src/server/logging"
	"github.com/campuslink/server/src/server/middleware"
	"github.com/campuslink/server/src/server/storage"
	"github.com/campuslink/server/src/server/store"
	"github.com/campuslink/server/src/server/store/postgres"
	"github.com/campuslink/server/src/server/store/sqlite"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel)

	s := openStore(cfg)
	defer s.Close()

	objStorage, localFiles := openStorage(cfg)

	eng := engine.New(s)

	postHandler := &handlers.PostHandler{Engine: eng}
	claimHandler := &handlers.ClaimHandler{Engine: eng}
	noteHandler := &handlers.NoteHandler{Engine: eng}
	uploadHandler := &handlers.UploadHandler{Storage: objStorage}
	healthHandler := &handlers.HealthHandler{Store: s, Storage: objStorage}

	describeHandler := &handlers.DescribeHandler{}
	if cfg.GeminiAPIKey != "" {
		describeHandler.Describer = describe.NewGemini(cfg.GeminiAPIKey)
	} else {
		slog.Warn("GEMINI_API_KEY not set, description generator disabled")
	}

	requireIdentity := middleware.DevIdentity
	if cfg.AuthEnabled {
		requireIdentity = middleware.RequireAuth(middleware.AuthConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
		})
	} else {
		slog.Warn("auth disabled, identity comes from X-User-* headers")
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Idempotency-Key", "X-User-Id", "X-User-Email", "X-User-Name"},
	}))

	r.Get("/health", healthHandler.Check)

	r.Get("/posts", postHandler.List)
	r.Get("/posts/{id}", postHandler.Get)
	r.Get("/notes", noteHandler.List)
	r.Get("/notes/{id}", noteHandler.Get)
	r.Post("/notes/{id}/download", noteHandler.Download)
	r.Post("/describe", describeHandler.Generate)

	r.Group(func(r chi.Router) {
		r.Use(requireIdentity)
		r.Post("/posts", postHandler.Create)
		r.Post("/posts/{id}/claims", claimHandler.Submit)
		r.Post("/posts/{id}/claims/{claimID}/accept", claimHandler.Accept)
		r.Post("/posts/{id}/claims/{claimID}/reject", claimHandler.Reject)
		r.Post("/posts/{id}/return", claimHandler.Return)
		r.Post("/notes", noteHandler.Create)
		r.Post("/notes/{id}/comments", noteHandler.AddComment)
		r.Put("/notes/{id}/rating", noteHandler.Rate)
		r.Post("/uploads", uploadHandler.Upload)
	})

	if localFiles != nil {
		fileServer := http.StripPrefix("/files/", http.FileServer(http.Dir(localFiles.Dir())))
		r.Handle("/files/*", fileServer)
	}

	slog.Info("campuslink server listening", "port", cfg.Port, "store", cfg.StoreBackend, "storage", cfg.StorageBackend)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}

func openStore(cfg *config.Config) store.Store {
	switch cfg.StoreBackend {
	case "postgres":
		if cfg.DatabaseURL == "" {
			log.Fatal("STORE_BACKEND=postgres requires DATABASE_URL")
		}
		pg, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to open postgres store: %v", err)
		}
		if err := pg.Migrate(); err != nil {
			log.Fatalf("Failed to migrate postgres store: %v", err)
		}
		return pg
	case "sqlite":
		sq, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			log.Fatalf("Failed to open sqlite store: %v", err)
		}
		if err := sq.Migrate(); err != nil {
			log.Fatalf("Failed to migrate sqlite store: %v", err)
		}
		return sq
	case "memory":
		return store.NewMemoryStore()
	default:
		log.Fatalf("Unknown STORE_BACKEND %q", cfg.StoreBackend)
		return nil
	}
}

// openStorage returns the configured object storage; the second value is
// non-nil when uploads land on the local filesystem and need a /files route.
func openStorage(cfg *config.Config) (storage.ObjectStorage, *storage.LocalStorage) {
	switch cfg.StorageBackend {
	case "s3":
		s3, err := storage.NewS3(storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			log.Fatalf("Failed to configure S3 storage: %v", err)
		}
		return s3, nil
	case "local":
		local, err := storage.NewLocal(cfg.LocalFilesDir, "/files")
		if err != nil {
			log.Fatalf("Failed to configure local storage: %v", err)
		}
		return local, local
	default:
		log.Fatalf("Unknown STORAGE_BACKEND %q", cfg.StorageBackend)
		return nil, nil
	}
}
