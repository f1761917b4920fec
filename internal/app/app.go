package app

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/GoArmGo/VideoTube/internal/config"
	"github.com/GoArmGo/VideoTube/internal/core/ports"
	"github.com/GoArmGo/VideoTube/internal/handler"
	"github.com/GoArmGo/VideoTube/internal/usecase"
	"github.com/jmoiron/sqlx"
)

const (
	ModeServer = "server"
	ModeWorker = "worker"
)

type App struct {
	Config          *config.Config
	logger          *slog.Logger
	db              *sqlx.DB
	userHandler     *handler.UserHandler
	blobs           usecase.BlobStore
	cleanupConsumer ports.BlobCleanupConsumer
	closers         []func()
}

func NewApp(cfg *config.Config,
	logger *slog.Logger,
	db *sqlx.DB,
	userHandler *handler.UserHandler,
	blobs usecase.BlobStore,
	cleanupConsumer ports.BlobCleanupConsumer,
	closers ...func()) *App {
	return &App{
		Config:          cfg,
		logger:          logger,
		db:              db,
		userHandler:     userHandler,
		blobs:           blobs,
		cleanupConsumer: cleanupConsumer,
		closers:         closers,
	}
}

// LoggerIns returns the application logger.
func (a *App) LoggerIns() *slog.Logger {
	return a.logger
}

// Run starts the given mode and blocks until SIGINT/SIGTERM or ctx is done.
func (a *App) Run(ctx context.Context, mode string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info("starting", "mode", mode)

	var err error
	switch mode {
	case ModeServer:
		err = runServer(ctx, a.Config, a.userHandler, a.logger)
	case ModeWorker:
		err = runWorker(ctx, a.blobs, a.cleanupConsumer, a.logger)
	default:
		err = fmt.Errorf("unknown mode %q (use %q or %q)", mode, ModeServer, ModeWorker)
	}

	if closeErr := a.Shutdown(); closeErr != nil {
		a.logger.Error("shutdown failed", "error", closeErr)
	}
	return err
}

// Shutdown releases the database pool and the broker connection.
func (a *App) Shutdown() error {
	for _, closeFn := range a.closers {
		closeFn()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			return fmt.Errorf("close database: %w", err)
		}
	}
	a.logger.Info("resources released")
	return nil
}
