// Package memory is an in-process implementation of the storage ports.
// It keeps the per-record atomicity the Postgres stores provide and backs
// the use case and handler tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/GoArmGo/VideoTube/internal/domain"
	"github.com/google/uuid"
)

// Store holds users, videos and subscription edges behind one mutex.
type Store struct {
	mu            sync.RWMutex
	users         map[uuid.UUID]domain.User
	videos        map[uuid.UUID]domain.Video
	subscriptions []domain.Subscription
	now           func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:  make(map[uuid.UUID]domain.User),
		videos: make(map[uuid.UUID]domain.Video),
		now:    time.Now,
	}
}

func (s *Store) FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

func (s *Store) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return fmt.Errorf("create user %s: %w", user.Username, domain.ErrDuplicateUser)
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := s.now()
	user.CreatedAt, user.UpdatedAt = now, now
	s.users[user.ID] = *cloneUser(*user)
	return nil
}

func (s *Store) SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return false, nil
	}
	u.RefreshToken = copyString(token)
	u.UpdatedAt = s.now()
	s.users[id] = u
	return true, nil
}

func (s *Store) SwapRefreshToken(ctx context.Context, id uuid.UUID, expected, next string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || u.RefreshToken == nil || *u.RefreshToken != expected {
		return false, nil
	}
	u.RefreshToken = &next
	u.UpdatedAt = s.now()
	s.users[id] = u
	return true, nil
}

func (s *Store) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return false, nil
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = s.now()
	s.users[id] = u
	return true, nil
}

func cloneUser(u domain.User) *domain.User {
	c := u
	c.RefreshToken = copyString(u.RefreshToken)
	if u.WatchHistory != nil {
		c.WatchHistory = append([]uuid.UUID(nil), u.WatchHistory...)
	}
	return &c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
