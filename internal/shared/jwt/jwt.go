package jwt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	jw "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Secret returns the HS256 key shared by the API and development clients.
func Secret() []byte {
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("replace-this-with-a-strong-secret")
}

func Make(secret []byte, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jw.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	return jw.NewWithClaims(jw.SigningMethodHS256, claims).SignedString(secret)
}

// Parse verifies tok and returns its subject, which must be a user uuid.
func Parse(secret []byte, tok string) (string, error) {
	t, err := jw.Parse(tok, func(t *jw.Token) (any, error) {
		if _, ok := t.Method.(*jw.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jw.WithExpirationRequired())
	if err != nil || !t.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	mc, ok := t.Claims.(jw.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: bad claims", ErrInvalidToken)
	}
	sub, _ := mc["sub"].(string)
	if _, err := uuid.Parse(sub); err != nil {
		return "", fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	return sub, nil
}

// DevTokenSource mints tokens for a fixed user. It is meant for local
// development and the seeder; production clients use a token issued by the
// auth provider.
type DevTokenSource struct {
	Secret []byte
	UserID string
	TTL    time.Duration

	mu      sync.Mutex
	token   string
	expires time.Time
}

func (s *DevTokenSource) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" && time.Until(s.expires) > time.Minute {
		return s.token, nil
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	tok, err := Make(s.Secret, s.UserID, ttl)
	if err != nil {
		return "", err
	}
	s.token = tok
	s.expires = time.Now().Add(ttl)
	return tok, nil
}
