package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/VideoTube/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const channelProfileSelect = `u.id, u.full_name, u.username, u.email, u.avatar, u.cover_image,
	(SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id) AS subscribers_count,
	(SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id) AS channels_subscribed_to_count,
	EXISTS (SELECT 1 FROM subscriptions s WHERE s.channel_id = u.id AND s.subscriber_id = ?) AS is_subscribed`

// Entries whose video was deleted drop out of the inner join; ordinality
// keeps the history order.
const watchHistoryQuery = `
SELECT v.id, v.owner_id, v.video_file, v.thumbnail, v.title, v.description,
	v.duration, v.views, v.is_published, v.created_at, v.updated_at,
	o.full_name AS owner_full_name, o.username AS owner_username, o.avatar AS owner_avatar
FROM unnest(?::uuid[]) WITH ORDINALITY AS h(video_id, ord)
JOIN videos v ON v.id = h.video_id
JOIN users o ON o.id = v.owner_id
ORDER BY h.ord`

type historyRow struct {
	History pq.StringArray `gorm:"column:watch_history"`
}

type watchedRow struct {
	domain.Video
	OwnerFullName string
	OwnerUsername string
	OwnerAvatar   string
}

// ChannelStorage implements ports.ChannelStorage with gorm.
type ChannelStorage struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewChannelStorage(db *gorm.DB, logger *slog.Logger) *ChannelStorage {
	return &ChannelStorage{db: db, logger: logger}
}

func (s *ChannelStorage) ChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (*domain.ChannelProfile, error) {
	start := time.Now()

	var profiles []domain.ChannelProfile
	result := s.db.WithContext(ctx).
		Table("users AS u").
		Select(channelProfileSelect, viewerID).
		Where("u.username = ?", username).
		Scan(&profiles)
	if result.Error != nil {
		s.logger.Error("failed to load channel profile", "username", username, "error", result.Error)
		return nil, fmt.Errorf("load channel profile: %w", result.Error)
	}
	if len(profiles) == 0 {
		return nil, nil
	}

	s.logger.Debug("channel profile loaded",
		"username", username,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &profiles[0], nil
}

func (s *ChannelStorage) WatchHistory(ctx context.Context, userID uuid.UUID) ([]domain.WatchedVideo, error) {
	start := time.Now()

	var users []historyRow
	result := s.db.WithContext(ctx).
		Table("users").
		Select("watch_history::text[] AS watch_history").
		Where("id = ?", userID).
		Scan(&users)
	if result.Error != nil {
		s.logger.Error("failed to load watch history ids", "user_id", userID, "error", result.Error)
		return nil, fmt.Errorf("load watch history ids: %w", result.Error)
	}
	if len(users) == 0 {
		return nil, nil
	}

	history := make([]domain.WatchedVideo, 0, len(users[0].History))
	if len(users[0].History) == 0 {
		return history, nil
	}

	var rows []watchedRow
	if err := s.db.WithContext(ctx).Raw(watchHistoryQuery, users[0].History).Scan(&rows).Error; err != nil {
		s.logger.Error("failed to resolve watch history", "user_id", userID, "error", err)
		return nil, fmt.Errorf("resolve watch history: %w", err)
	}

	for _, r := range rows {
		history = append(history, domain.WatchedVideo{
			Video: r.Video,
			Owner: domain.OwnerSummary{
				FullName: r.OwnerFullName,
				Username: r.OwnerUsername,
				Avatar:   r.OwnerAvatar,
			},
		})
	}

	s.logger.Debug("watch history resolved",
		"user_id", userID,
		"count", len(history),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return history, nil
}
