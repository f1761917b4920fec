package di

import (
	"context"
	"fmt"

	"github.com/GoArmGo/VideoTube/internal/adapter/storage/minio"
	"github.com/GoArmGo/VideoTube/internal/app"
	"github.com/GoArmGo/VideoTube/internal/auth"
	"github.com/GoArmGo/VideoTube/internal/config"
	"github.com/GoArmGo/VideoTube/internal/database/client"
	"github.com/GoArmGo/VideoTube/internal/database/postgres"
	"github.com/GoArmGo/VideoTube/internal/database/storage"
	"github.com/GoArmGo/VideoTube/internal/handler"
	"github.com/GoArmGo/VideoTube/internal/logger"
	"github.com/GoArmGo/VideoTube/internal/rabbitmq"
	"github.com/GoArmGo/VideoTube/internal/usecase"
)

// BuildApp wires every dependency and returns a ready App.
func BuildApp(ctx context.Context) (*app.App, error) {
	// 1. Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	slogger := logger.NewSlog(logger.SlogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	slogger.Info("logger initialized", "level", cfg.LogLevel, "format", cfg.LogFormat, "environment", cfg.Environment)

	// 2. PostgreSQL: sqlx for credentials, gorm on the same pool for the read model
	dbClient, err := client.NewClient(cfg, slogger)
	if err != nil {
		return nil, err
	}

	gormDB, err := postgres.NewGormDB(dbClient.DB.DB)
	if err != nil {
		_ = dbClient.Close()
		return nil, err
	}

	userStorage := storage.NewUserStorage(dbClient.DB, slogger)
	channelStorage := postgres.NewChannelStorage(gormDB, slogger)

	// 3. Blob store
	blobStore, err := minio.NewMinioClient(ctx, cfg, slogger)
	if err != nil {
		_ = dbClient.Close()
		return nil, err
	}

	// 4. RabbitMQ: publisher in server mode, consumer in worker mode
	rabbitMQClient, err := rabbitmq.NewClient(cfg, slogger)
	if err != nil {
		_ = dbClient.Close()
		return nil, err
	}

	// 5. Token codec and password hasher
	codec, err := auth.NewCodec(
		auth.SigningKey{Secret: []byte(cfg.AccessTokenSecret), TTL: cfg.AccessTokenExpiry},
		auth.SigningKey{Secret: []byte(cfg.RefreshTokenSecret), TTL: cfg.RefreshTokenExpiry},
	)
	if err != nil {
		rabbitMQClient.Close()
		_ = dbClient.Close()
		return nil, fmt.Errorf("build token codec: %w", err)
	}
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)

	// 6. Use cases
	sessions := usecase.NewSessionUseCase(userStorage, blobStore, rabbitMQClient, codec, hasher, slogger)
	channels := usecase.NewChannelUseCase(channelStorage, slogger)

	// 7. Transport
	userHandler := handler.NewUserHandler(sessions, channels, handler.Options{
		CookieSecure:   cfg.CookieSecure,
		AccessTTL:      cfg.AccessTokenExpiry,
		RefreshTTL:     cfg.RefreshTokenExpiry,
		UploadTempDir:  cfg.UploadTempDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Development:    cfg.IsDevelopment(),
	}, slogger)

	application := app.NewApp(
		cfg,
		slogger,
		dbClient.DB,
		userHandler,
		blobStore,
		rabbitMQClient,
		rabbitMQClient.Close,
	)

	slogger.Info("all dependencies initialized")
	return application, nil
}
