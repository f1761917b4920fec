// Package auth holds the token codec and the password hasher used by the
// session use case.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purpose selects one of the two independent signing contexts.
type Purpose int

const (
	PurposeAccess Purpose = iota + 1
	PurposeRefresh
)

func (p Purpose) String() string {
	switch p {
	case PurposeAccess:
		return "access"
	case PurposeRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

var (
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
)

// SigningKey is the secret and lifetime of one signing context.
type SigningKey struct {
	Secret []byte
	TTL    time.Duration
}

// Claims carries the subject of a token. The jti makes every issued token
// unique even when two are signed within the same second.
type Claims struct {
	jwt.RegisteredClaims
}

// Codec signs and verifies access and refresh tokens. It does no I/O.
type Codec struct {
	keys map[Purpose]SigningKey
	now  func() time.Time
}

// NewCodec returns a codec for the two signing contexts. The secrets must be
// non-empty and distinct.
func NewCodec(access, refresh SigningKey) (*Codec, error) {
	if len(access.Secret) == 0 || len(refresh.Secret) == 0 {
		return nil, errors.New("token secrets must not be empty")
	}
	if string(access.Secret) == string(refresh.Secret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if access.TTL <= 0 || refresh.TTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	return &Codec{
		keys: map[Purpose]SigningKey{
			PurposeAccess:  access,
			PurposeRefresh: refresh,
		},
		now: time.Now,
	}, nil
}

// IssueAccess signs a short-lived access token for subjectID.
func (c *Codec) IssueAccess(subjectID uuid.UUID) (string, error) {
	return c.Issue(PurposeAccess, subjectID)
}

// IssueRefresh signs a long-lived refresh token for subjectID.
func (c *Codec) IssueRefresh(subjectID uuid.UUID) (string, error) {
	return c.Issue(PurposeRefresh, subjectID)
}

// Issue signs a token for subjectID in the given context.
func (c *Codec) Issue(purpose Purpose, subjectID uuid.UUID) (string, error) {
	key, ok := c.keys[purpose]
	if !ok {
		return "", fmt.Errorf("unknown token purpose %d", purpose)
	}

	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(key.TTL)),
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(key.Secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", purpose, err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of tokenString in the given context
// and returns its subject.
func (c *Codec) Verify(tokenString string, purpose Purpose) (uuid.UUID, error) {
	key, ok := c.keys[purpose]
	if !ok {
		return uuid.Nil, fmt.Errorf("unknown token purpose %d", purpose)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return key.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return uuid.Nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return uuid.Nil, ErrTokenSignatureInvalid
		default:
			return uuid.Nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
		}
	}

	subjectID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrTokenMalformed)
	}
	return subjectID, nil
}
