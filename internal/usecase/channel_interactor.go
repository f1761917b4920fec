package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/GoArmGo/VideoTube/internal/core/ports"
	"github.com/GoArmGo/VideoTube/internal/domain"
	"github.com/google/uuid"
)

// channelUseCase implements ChannelUseCase
type channelUseCase struct {
	channels ports.ChannelStorage
	logger   *slog.Logger
}

func NewChannelUseCase(channels ports.ChannelStorage, logger *slog.Logger) ChannelUseCase {
	return &channelUseCase{channels: channels, logger: logger}
}

// ChannelProfile returns the channel page of username as seen by viewerID.
func (uc *channelUseCase) ChannelProfile(ctx context.Context, viewerID uuid.UUID, username string) (*domain.ChannelProfile, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, domain.NewValidationError("username is missing")
	}

	profile, err := uc.channels.ChannelProfile(ctx, username, viewerID)
	if err != nil {
		return nil, domain.NewInternalError("failed to load channel", err)
	}
	if profile == nil {
		return nil, domain.NewNotFoundError("channel does not exist")
	}
	return profile, nil
}

// WatchHistory returns the videos userID watched, in history order.
func (uc *channelUseCase) WatchHistory(ctx context.Context, userID uuid.UUID) ([]domain.WatchedVideo, error) {
	history, err := uc.channels.WatchHistory(ctx, userID)
	if err != nil {
		return nil, domain.NewInternalError("failed to load watch history", err)
	}
	if history == nil {
		return nil, domain.NewNotFoundError("user does not exist")
	}
	uc.logger.Debug("watch history loaded", "user_id", userID, "count", len(history))
	return history, nil
}
