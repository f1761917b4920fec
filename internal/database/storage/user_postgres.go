package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/VideoTube/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint hit.
const uniqueViolation = "23505"

const userColumns = `id, username, email, full_name, password_hash, avatar, cover_image,
	watch_history::text[] AS watch_history, refresh_token, created_at, updated_at`

// userRow adds the scan target for the uuid[] history column.
type userRow struct {
	domain.User
	History pq.StringArray `db:"watch_history"`
}

func (r *userRow) toDomain() (*domain.User, error) {
	u := r.User
	u.WatchHistory = make([]uuid.UUID, 0, len(r.History))
	for _, raw := range r.History {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse watch history entry %q: %w", raw, err)
		}
		u.WatchHistory = append(u.WatchHistory, id)
	}
	return &u, nil
}

// UserStorage implements ports.UserStorage on top of sqlx.
type UserStorage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewUserStorage(db *sqlx.DB, logger *slog.Logger) *UserStorage {
	return &UserStorage{db: db, logger: logger}
}

func (s *UserStorage) FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	start := time.Now()

	query := `SELECT ` + userColumns + ` FROM users
	WHERE ($1 <> '' AND username = $1) OR ($2 <> '' AND email = $2)
	LIMIT 1`

	user, err := s.getOne(ctx, query, username, email)
	if err != nil {
		s.logger.Error("failed to find user by username or email", "username", username, "error", err)
		return nil, fmt.Errorf("find user by username or email: %w", err)
	}

	s.logger.Debug("user lookup by username or email",
		"username", username,
		"found", user != nil,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return user, nil
}

func (s *UserStorage) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	start := time.Now()

	user, err := s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		s.logger.Error("failed to find user by id", "user_id", id, "error", err)
		return nil, fmt.Errorf("find user by id: %w", err)
	}

	s.logger.Debug("user lookup by id",
		"user_id", id,
		"found", user != nil,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return user, nil
}

func (s *UserStorage) Create(ctx context.Context, user *domain.User) error {
	start := time.Now()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now

	query := `
	INSERT INTO users (id, username, email, full_name, password_hash, avatar, cover_image, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.FullName, user.PasswordHash,
		user.Avatar, user.CoverImage, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			s.logger.Warn("user already exists", "username", user.Username, "constraint", pqErr.Constraint)
			return fmt.Errorf("insert user %s: %w", user.Username, domain.ErrDuplicateUser)
		}
		s.logger.Error("failed to insert user", "username", user.Username, "error", err)
		return fmt.Errorf("insert user: %w", err)
	}

	s.logger.Info("user created",
		"user_id", user.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (s *UserStorage) SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) (bool, error) {
	query := `UPDATE users SET refresh_token = $2, updated_at = NOW() WHERE id = $1`
	return s.execSingle(ctx, "set refresh token", query, id, token)
}

// SwapRefreshToken is a compare-and-swap: the row is only updated while it
// still holds expected.
func (s *UserStorage) SwapRefreshToken(ctx context.Context, id uuid.UUID, expected, next string) (bool, error) {
	query := `UPDATE users SET refresh_token = $3, updated_at = NOW() WHERE id = $1 AND refresh_token = $2`
	return s.execSingle(ctx, "swap refresh token", query, id, expected, next)
}

func (s *UserStorage) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) (bool, error) {
	query := `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	return s.execSingle(ctx, "update password", query, id, passwordHash)
}

func (s *UserStorage) getOne(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toDomain()
}

// execSingle runs an update addressed to one user and reports whether a row changed.
func (s *UserStorage) execSingle(ctx context.Context, op, query string, id uuid.UUID, args ...any) (bool, error) {
	start := time.Now()

	res, err := s.db.ExecContext(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		s.logger.Error("failed to "+op, "user_id", id, "error", err)
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: rows affected: %w", op, err)
	}

	s.logger.Debug(op,
		"user_id", id,
		"updated", n == 1,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return n == 1, nil
}
