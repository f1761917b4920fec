package usecase

import (
	"context"

	"github.com/GoArmGo/VideoTube/internal/auth"
	"github.com/GoArmGo/VideoTube/internal/domain"
	"github.com/google/uuid"
)

// BlobStore is the media host for avatars and cover images.
type BlobStore interface {
	// Upload sends the local file to the media host and removes the local
	// copy whether or not the upload succeeds. An empty path uploads nothing
	// and returns (nil, nil).
	Upload(ctx context.Context, localPath string) (*domain.Blob, error)
	// Delete removes the blob with the given public id.
	Delete(ctx context.Context, publicID string) error
}

// TokenCodec signs and verifies tokens for the two signing contexts.
type TokenCodec interface {
	IssueAccess(subjectID uuid.UUID) (string, error)
	IssueRefresh(subjectID uuid.UUID) (string, error)
	Verify(token string, purpose auth.Purpose) (uuid.UUID, error)
}

// PasswordHasher is a one-way password hash.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// RegisterInput carries the registration form. The file paths point to
// temporary local copies of the uploaded images.
type RegisterInput struct {
	Username            string
	Email               string
	FullName            string
	Password            string
	AvatarLocalPath     string
	CoverImageLocalPath string
}

// LoginInput identifies the user by username or email.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Tokens domain.TokenPair
	User   *domain.PublicUser
}

// SessionUseCase owns registration, credential checks and the
// access/refresh token lifecycle. Every error it returns is a *domain.Error.
type SessionUseCase interface {
	Register(ctx context.Context, input RegisterInput) (*domain.PublicUser, error)
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	// RefreshAccessToken rotates the refresh token. The presented token must
	// equal the stored one; it is unusable once this call succeeds.
	RefreshAccessToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	// Logout clears the stored refresh token of userID.
	Logout(ctx context.Context, userID uuid.UUID) error
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
	// Authenticate resolves the user behind an access token.
	Authenticate(ctx context.Context, accessToken string) (*domain.PublicUser, error)
}

// ChannelUseCase serves the read-only aggregation views.
type ChannelUseCase interface {
	ChannelProfile(ctx context.Context, viewerID uuid.UUID, username string) (*domain.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID uuid.UUID) ([]domain.WatchedVideo, error)
}
