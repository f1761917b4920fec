package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/GoArmGo/VideoTube/internal/auth"
	"github.com/GoArmGo/VideoTube/internal/core/ports"
	"github.com/GoArmGo/VideoTube/internal/domain"
	"github.com/GoArmGo/VideoTube/internal/messaging/payloads"
	"github.com/google/uuid"
)

// Client-facing auth messages. They do not reveal which check failed
// beyond what the caller already knows.
const (
	msgMissingRefreshToken = "unauthorized request: missing refresh token"
	msgBadRefreshToken     = "invalid or expired refresh token"
	msgUnknownSubject      = "invalid refresh token"
	msgRefreshReplayed     = "refresh token is expired or already used"
	msgUnauthorized        = "unauthorized request"
	msgBadAccessToken      = "invalid access token"
)

// sessionUseCase implements SessionUseCase.
type sessionUseCase struct {
	users     ports.UserStorage
	blobs     BlobStore
	cleanup   ports.BlobCleanupPublisher
	tokens    TokenCodec
	passwords PasswordHasher
	logger    *slog.Logger
}

// NewSessionUseCase wires the session use case. cleanup may be nil, in which
// case orphaned blobs are only logged.
func NewSessionUseCase(
	users ports.UserStorage,
	blobs BlobStore,
	cleanup ports.BlobCleanupPublisher,
	tokens TokenCodec,
	passwords PasswordHasher,
	logger *slog.Logger,
) SessionUseCase {
	return &sessionUseCase{
		users:     users,
		blobs:     blobs,
		cleanup:   cleanup,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// Register validates the form, uploads the images and stores the new user.
func (uc *sessionUseCase) Register(ctx context.Context, in RegisterInput) (*domain.PublicUser, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.TrimSpace(in.Email)
	fullName := strings.TrimSpace(in.FullName)

	if username == "" || email == "" || fullName == "" || strings.TrimSpace(in.Password) == "" {
		return nil, domain.NewValidationError("all fields are required")
	}

	existing, err := uc.users.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, domain.NewInternalError("failed to check existing users", err)
	}
	if existing != nil {
		return nil, domain.NewConflictError("user with email or username already exists", nil)
	}

	if strings.TrimSpace(in.AvatarLocalPath) == "" {
		return nil, domain.NewValidationError("avatar file is required")
	}

	avatar, err := uc.blobs.Upload(ctx, in.AvatarLocalPath)
	if err != nil || avatar == nil {
		uc.logger.Warn("avatar upload failed", "username", username, "error", err)
		return nil, domain.NewValidationError("avatar file is required")
	}

	// The cover image is optional. Upload is still called with an empty path,
	// which the blob store treats as a no-op.
	cover, err := uc.blobs.Upload(ctx, in.CoverImageLocalPath)
	if err != nil {
		uc.logger.Warn("cover image upload failed, continuing without it", "username", username, "error", err)
		cover = nil
	}

	hash, err := uc.passwords.Hash(in.Password)
	if err != nil {
		uc.scheduleBlobCleanup(ctx, "password hashing failed", avatar, cover)
		return nil, domain.NewInternalError("failed to register user", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		Avatar:       avatar.URL,
	}
	if cover != nil {
		user.CoverImage = cover.URL
	}

	if err := uc.users.Create(ctx, user); err != nil {
		uc.scheduleBlobCleanup(ctx, "user create failed", avatar, cover)
		if errors.Is(err, domain.ErrDuplicateUser) {
			return nil, domain.NewConflictError("user with email or username already exists", err)
		}
		return nil, domain.NewInternalError("failed to register user", err)
	}

	created, err := uc.users.FindByID(ctx, user.ID)
	if err != nil {
		return nil, domain.NewInternalError("failed to load registered user", err)
	}
	if created == nil {
		return nil, domain.NewInternalError("something went wrong while registering the user", nil)
	}

	uc.logger.Info("user registered", "user_id", created.ID, "username", created.Username)
	return created.Public(), nil
}

// Login checks the credentials and starts a new session, replacing any
// refresh token stored before.
func (uc *sessionUseCase) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.TrimSpace(in.Email)

	if username == "" && email == "" {
		return nil, domain.NewValidationError("username or email is required")
	}
	if in.Password == "" {
		return nil, domain.NewValidationError("password is required")
	}

	user, err := uc.users.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, domain.NewInternalError("failed to look up user", err)
	}
	if user == nil {
		return nil, domain.NewNotFoundError("user does not exist")
	}

	if !uc.passwords.Verify(user.PasswordHash, in.Password) {
		return nil, domain.NewAuthError("invalid user credentials")
	}

	pair, err := uc.issuePair(user.ID)
	if err != nil {
		return nil, err
	}

	// Tokens are returned only once the refresh token is stored; otherwise
	// the client would hold a refresh token that can never be used.
	ok, err := uc.users.SetRefreshToken(ctx, user.ID, &pair.RefreshToken)
	if err != nil {
		return nil, domain.NewInternalError("failed to persist session", err)
	}
	if !ok {
		return nil, domain.NewInternalError("failed to persist session", errors.New("user vanished during login"))
	}
	user.RefreshToken = &pair.RefreshToken

	uc.logger.Info("user logged in", "user_id", user.ID)
	return &LoginResult{Tokens: *pair, User: user.Public()}, nil
}

// RefreshAccessToken exchanges the current refresh token for a new pair.
func (uc *sessionUseCase) RefreshAccessToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, domain.NewAuthError(msgMissingRefreshToken)
	}

	subjectID, err := uc.tokens.Verify(refreshToken, auth.PurposeRefresh)
	if err != nil {
		uc.logger.Debug("refresh token rejected by codec", "error", err)
		return nil, domain.NewAuthError(msgBadRefreshToken)
	}

	user, err := uc.users.FindByID(ctx, subjectID)
	if err != nil {
		return nil, domain.NewInternalError("failed to look up user", err)
	}
	if user == nil {
		return nil, domain.NewAuthError(msgUnknownSubject)
	}

	if user.RefreshToken == nil || !tokensEqual(*user.RefreshToken, refreshToken) {
		uc.logger.Warn("stale refresh token presented", "user_id", user.ID)
		return nil, domain.NewAuthError(msgRefreshReplayed)
	}

	pair, err := uc.issuePair(user.ID)
	if err != nil {
		return nil, err
	}

	// The swap is conditional on the presented token still being stored, so
	// of two concurrent refreshes with the same token only one wins.
	swapped, err := uc.users.SwapRefreshToken(ctx, user.ID, refreshToken, pair.RefreshToken)
	if err != nil {
		return nil, domain.NewInternalError("failed to rotate session", err)
	}
	if !swapped {
		uc.logger.Warn("refresh token lost rotation race", "user_id", user.ID)
		return nil, domain.NewAuthError(msgRefreshReplayed)
	}

	uc.logger.Info("refresh token rotated", "user_id", user.ID)
	return pair, nil
}

// Logout clears the stored refresh token. A missing user is not an error.
func (uc *sessionUseCase) Logout(ctx context.Context, userID uuid.UUID) error {
	ok, err := uc.users.SetRefreshToken(ctx, userID, nil)
	if err != nil {
		return domain.NewInternalError("failed to log out", err)
	}
	if !ok {
		uc.logger.Warn("logout for unknown user", "user_id", userID)
		return nil
	}
	uc.logger.Info("user logged out", "user_id", userID)
	return nil
}

// ChangePassword replaces the password hash. The stored refresh token is
// left untouched.
func (uc *sessionUseCase) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	if oldPassword == "" || strings.TrimSpace(newPassword) == "" {
		return domain.NewValidationError("old and new passwords are required")
	}

	user, err := uc.users.FindByID(ctx, userID)
	if err != nil {
		return domain.NewInternalError("failed to look up user", err)
	}
	if user == nil {
		return domain.NewNotFoundError("user does not exist")
	}

	if !uc.passwords.Verify(user.PasswordHash, oldPassword) {
		return domain.NewAuthError("invalid old password")
	}

	hash, err := uc.passwords.Hash(newPassword)
	if err != nil {
		return domain.NewInternalError("failed to change password", err)
	}

	ok, err := uc.users.UpdatePassword(ctx, userID, hash)
	if err != nil {
		return domain.NewInternalError("failed to change password", err)
	}
	if !ok {
		return domain.NewNotFoundError("user does not exist")
	}

	uc.logger.Info("password changed", "user_id", userID)
	return nil
}

// Authenticate verifies an access token and loads its subject.
func (uc *sessionUseCase) Authenticate(ctx context.Context, accessToken string) (*domain.PublicUser, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, domain.NewAuthError(msgUnauthorized)
	}

	subjectID, err := uc.tokens.Verify(accessToken, auth.PurposeAccess)
	if err != nil {
		return nil, domain.NewAuthError(msgBadAccessToken)
	}

	user, err := uc.users.FindByID(ctx, subjectID)
	if err != nil {
		return nil, domain.NewInternalError("failed to look up user", err)
	}
	if user == nil {
		return nil, domain.NewAuthError(msgBadAccessToken)
	}
	return user.Public(), nil
}

func (uc *sessionUseCase) issuePair(userID uuid.UUID) (*domain.TokenPair, error) {
	access, err := uc.tokens.IssueAccess(userID)
	if err != nil {
		return nil, domain.NewInternalError("failed to generate access token", err)
	}
	refresh, err := uc.tokens.IssueRefresh(userID)
	if err != nil {
		return nil, domain.NewInternalError("failed to generate refresh token", err)
	}
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// scheduleBlobCleanup asks the worker to delete blobs that were uploaded for
// a registration that did not complete. Failures are logged only.
func (uc *sessionUseCase) scheduleBlobCleanup(ctx context.Context, reason string, blobs ...*domain.Blob) {
	var ids []string
	for _, b := range blobs {
		if b != nil && b.PublicID != "" {
			ids = append(ids, b.PublicID)
		}
	}
	if len(ids) == 0 {
		return
	}
	if uc.cleanup == nil {
		uc.logger.Warn("orphaned blobs left behind", "public_ids", ids, "reason", reason)
		return
	}

	// The request may already be cancelled; the cleanup must still go out.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	err := uc.cleanup.PublishBlobCleanup(pubCtx, payloads.BlobCleanupPayload{PublicIDs: ids, Reason: reason})
	if err != nil {
		uc.logger.Warn("failed to schedule blob cleanup", "public_ids", ids, "reason", reason, "error", err)
	}
}

func tokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
