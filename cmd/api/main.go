package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/stocklens/internal/api"
	"github.com/andresuchdata/stocklens/internal/config"
	"github.com/andresuchdata/stocklens/internal/dataset"
	"github.com/andresuchdata/stocklens/internal/drive"
	"github.com/andresuchdata/stocklens/internal/service"
	"github.com/andresuchdata/stocklens/internal/storage"
	"github.com/andresuchdata/stocklens/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.Setup(cfg.Log.Level, cfg.Log.Format)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := cfg.Validate(); err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	store, err := dataset.Open(ctx, cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to open dataset store")
	}
	defer store.Close()

	objects, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize object storage")
	}
	archive := storage.NewArchive(objects, cfg.Storage.Prefix)

	var driveSource service.DriveSource
	if cfg.Drive.Enabled() {
		driveService, err := drive.NewService(ctx, cfg.Drive.CredentialsJSON)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize Google Drive service")
		}
		driveSource = driveService
	}

	inventory := service.NewInventoryService(store, archive, driveSource, cfg)
	router := api.NewRouter(&api.Services{
		Inventory:      inventory,
		MaxUploadBytes: cfg.Ingest.MaxUploadBytes,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().
			Str("port", cfg.Server.Port).
			Str("dataset", cfg.Dataset.Backend).
			Bool("archive", archive.Enabled()).
			Bool("drive", driveSource != nil).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
