package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rujoshi/zonetrack/internal/auth"
	"github.com/rujoshi/zonetrack/internal/config"
	"github.com/rujoshi/zonetrack/internal/db"
	"github.com/rujoshi/zonetrack/internal/logging"
	"github.com/rujoshi/zonetrack/internal/notify"
	"github.com/rujoshi/zonetrack/internal/photostore"
	"github.com/rujoshi/zonetrack/internal/photostore/local"
	"github.com/rujoshi/zonetrack/internal/service"
	"github.com/rujoshi/zonetrack/internal/store"
	"github.com/rujoshi/zonetrack/internal/web"
)

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	zoneStore := store.NewZoneStore(database)
	workStore := store.NewWorkStore(database)

	// One-time idempotent bootstrap so listing never has to write.
	if err := zoneStore.EnsureRange(context.Background(), cfg.ZoneCount); err != nil {
		logger.Error("failed to bootstrap zones", "error", err)
		return
	}

	photoStg, err := newPhotoStore(cfg)
	if err != nil {
		logger.Error("failed to initialize photo store", "error", err)
		return
	}

	dispatcher := notify.NewDispatcher(newNotifier(cfg, logger), logger, cfg.NotifyTimeout)
	defer dispatcher.Close()

	workService := service.NewWorkService(
		zoneStore, workStore, store.NewArchiveStore(database), photoStg, dispatcher, logger,
		cfg.PublicBaseURL, cfg.MaxPhotoBytes, cfg.BlobTimeout,
	)
	server := web.NewServer(workService, photoStg, auth.HeaderAuthenticator{}, logger, cfg.MaxPhotoBytes)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      server,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting server", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func newPhotoStore(cfg *config.Config) (photostore.PhotoStore, error) {
	switch cfg.PhotoBackend {
	case "local":
		return local.NewLocalPhotoStore(cfg.PhotoPath)
	default:
		return nil, fmt.Errorf("unknown photo backend %q", cfg.PhotoBackend)
	}
}

func newNotifier(cfg *config.Config, logger *slog.Logger) notify.Notifier {
	if cfg.NotifyDisabled || cfg.SMTPHost == "" {
		logger.Info("email notifications disabled")
		return notify.NoopNotifier{}
	}

	mailer, err := notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass,
		cfg.EmailFrom, cfg.ApproverEmail, cfg.ManagerEmail)
	if err != nil {
		logger.Error("failed to initialize mailer, notifications disabled", "error", err)
		return notify.NoopNotifier{}
	}
	logger.Info("email notifications enabled", "smtp_host", cfg.SMTPHost)
	return mailer
}
