package ports

import (
	"context"

	"github.com/GoArmGo/VideoTube/internal/domain"
	"github.com/google/uuid"
)

// UserStorage is the credential store. Lookups return (nil, nil) when no
// record matches.
type UserStorage interface {
	// FindByUsernameOrEmail returns the user whose username equals username or
	// whose email equals email. Empty arguments never match.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	// Create inserts user. A username or email collision returns an error
	// wrapping domain.ErrDuplicateUser.
	Create(ctx context.Context, user *domain.User) error
	// SetRefreshToken overwrites the stored refresh token; nil clears it.
	// It reports whether the user exists.
	SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) (bool, error)
	// SwapRefreshToken atomically replaces the stored refresh token with next
	// only if it currently equals expected. It reports whether the swap happened.
	SwapRefreshToken(ctx context.Context, id uuid.UUID, expected, next string) (bool, error)
	// UpdatePassword replaces the password hash. It reports whether the user exists.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) (bool, error)
}

// ChannelStorage serves the aggregation views over users, subscriptions and videos.
type ChannelStorage interface {
	// ChannelProfile returns nil when no user has the given username.
	ChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (*domain.ChannelProfile, error)
	// WatchHistory returns nil when the user does not exist. Entries keep the
	// order of the user's history.
	WatchHistory(ctx context.Context, userID uuid.UUID) ([]domain.WatchedVideo, error)
}
