package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a stored account. It corresponds to the users table.
//
// PasswordHash and RefreshToken never leave the service layer; callers
// receive a PublicUser instead.
type User struct {
	ID           uuid.UUID   `db:"id"`
	Username     string      `db:"username"`
	Email        string      `db:"email"`
	FullName     string      `db:"full_name"`
	PasswordHash string      `db:"password_hash"`
	Avatar       string      `db:"avatar"`
	CoverImage   string      `db:"cover_image"`
	WatchHistory []uuid.UUID `db:"-"`
	// RefreshToken is the single live refresh token, nil until first login
	// and after logout.
	RefreshToken *string   `db:"refresh_token"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// PublicUser is the user view returned to callers.
type PublicUser struct {
	ID           uuid.UUID   `json:"_id"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	FullName     string      `json:"fullName"`
	Avatar       string      `json:"avatar"`
	CoverImage   string      `json:"coverImage"`
	WatchHistory []uuid.UUID `json:"watchHistory"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// Public strips the password hash and refresh token.
func (u *User) Public() *PublicUser {
	history := u.WatchHistory
	if history == nil {
		history = []uuid.UUID{}
	}
	return &PublicUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FullName:     u.FullName,
		Avatar:       u.Avatar,
		CoverImage:   u.CoverImage,
		WatchHistory: history,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// TokenPair is the access/refresh pair handed to a client after login or refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Blob references an uploaded media object.
type Blob struct {
	URL      string
	PublicID string
}
