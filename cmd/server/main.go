// @title           Chmura Plikow API
// @version         1.0
// @host            localhost
// @schemes         http https
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"net/http"
	"os"

	"chmura-plikow/internal/api"
	"chmura-plikow/internal/config"
	"chmura-plikow/internal/database"
	"chmura-plikow/internal/mail"
	"chmura-plikow/internal/storage"
	"chmura-plikow/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	_ "chmura-plikow/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Nie można wczytać konfiguracji")
	}

	dbpool, err := pgxpool.New(context.Background(), cfg.DB.Source)
	if err != nil {
		log.Fatal().Err(err).Msg("Nie można połączyć się z bazą danych")
	}
	defer dbpool.Close()

	if err := dbpool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Nie można pingować bazy danych")
	}
	log.Info().Msg("Pomyślnie połączono z bazą danych")

	var blobs storage.BlobStore
	switch cfg.Storage.Backend {
	case "s3":
		blobs, err = storage.NewS3Storage(context.Background(), storage.S3Options{
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Nie można zainicjować S3 storage")
		}
		log.Info().Str("bucket", cfg.Storage.Bucket).Msg("Pliki będą przechowywane w S3")
	case "local":
		blobs, err = storage.NewLocalStorage(cfg.Storage.Path)
		if err != nil {
			log.Fatal().Err(err).Msg("Nie można zainicjować local storage")
		}
		log.Info().Str("path", cfg.Storage.Path).Msg("Pliki będą przechowywane lokalnie")
	default:
		log.Fatal().Str("backend", cfg.Storage.Backend).Msg("Nieznany backend magazynu (oczekiwano s3 lub local)")
	}

	mailer := mail.NewMailer(cfg.SMTP)

	wsHub := websocket.NewHub()
	go wsHub.Run()

	store := database.NewStore(dbpool)
	server := api.NewServer(cfg, store, blobs, mailer, wsHub, log)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("https://localhost/swagger/doc.json"),
	))

	// Upgrade WebSocket omija middleware metryk, bo opakowany writer psuje Hijack.
	r.Get("/ws", server.ServeWsHandler)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Chmura plików działa! Dokumentacja dostępna pod /swagger/index.html"))
	})

	r.Get("/health", server.HealthCheckHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(api.MetricsMiddleware)

		r.Post("/auth/register", server.RegisterHandler)
		r.Get("/auth/verify", server.VerifyEmailHandler)
		r.Post("/auth/login", server.LoginHandler)
		r.Post("/auth/refresh", server.RefreshTokenHandler)
		r.Post("/auth/forgot-password", server.ForgotPasswordHandler)
		r.Post("/auth/reset-password", server.ResetPasswordHandler)

		r.Group(func(r chi.Router) {
			r.Use(server.AuthMiddleware)
			r.Get("/me", server.GetCurrentUserHandler)
			r.Get("/me/storage", server.GetStorageUsageHandler)
			r.Get("/nodes", server.ListNodesHandler)
			r.Post("/nodes/folder", server.CreateFolderHandler)
			r.Post("/nodes/file", server.UploadFileHandler)
			r.Get("/nodes/{nodeId}/download", server.DownloadFileHandler)
			r.Get("/nodes/{nodeId}/archive", server.DownloadArchiveHandler)
			r.Patch("/nodes/{nodeId}", server.UpdateNodeHandler)
			r.Delete("/nodes/{nodeId}", server.DeleteNodeHandler)
			r.Post("/nodes/{nodeId}/restore", server.RestoreNodeHandler)
			r.Get("/trash", server.ListTrashHandler)
			r.Delete("/trash/purge", server.PurgeTrashHandler)
			r.Get("/sessions", server.ListSessionsHandler)
			r.Delete("/sessions/{sessionId}", server.DeleteSessionHandler)
			r.Post("/sessions/terminate_all", server.TerminateAllSessionsHandler)
			r.Get("/events", server.GetEventsHandler)
		})
	})

	log.Info().Str("addr", cfg.Addr).Msg("Uruchamianie serwera")
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		log.Fatal().Err(err).Msg("Nie można uruchomić serwera")
	}
}
