package api

import (
	"chmura-plikow/internal/archive"
	"chmura-plikow/internal/config"
	"chmura-plikow/internal/database"
	"chmura-plikow/internal/mail"
	"chmura-plikow/internal/storage"
	"chmura-plikow/internal/websocket"

	"github.com/rs/zerolog"
)

type Server struct {
	config   *config.Config
	store    *database.Store
	storage  storage.BlobStore
	archiver *archive.Pipeline
	mailer   *mail.Mailer
	wsHub    *websocket.Hub
	log      zerolog.Logger
}

func NewServer(cfg *config.Config, store *database.Store, blobs storage.BlobStore, mailer *mail.Mailer, wsHub *websocket.Hub, log zerolog.Logger) *Server {
	return &Server{
		config:   cfg,
		store:    store,
		storage:  blobs,
		archiver: archive.NewPipeline(store, blobs, log),
		mailer:   mailer,
		wsHub:    wsHub,
		log:      log,
	}
}
