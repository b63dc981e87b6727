// Package session keeps the logged-in user server-side in Redis, keyed by
// an opaque token the browser holds in a cookie.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-storefront.git/internal/model"
	"github.com/ariefcatur/go-storefront.git/internal/redisx"
)

const CookieName = "storefront_session"

var (
	ErrNoSession = errors.New("no session")
	// ErrCorrupt means the stored record is unreadable or has no user id;
	// the session is dropped and the user must log in again.
	ErrCorrupt = errors.New("session corrupt")
)

type Store struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewStore(rdb redis.Cmdable, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) TTL() time.Duration { return s.ttl }

// Create stores the sanitized user and returns a fresh token.
func (s *Store) Create(ctx context.Context, u model.User) (string, error) {
	if u.ID == "" {
		return "", fmt.Errorf("%w: user has no identifier", ErrCorrupt)
	}
	b, err := json.Marshal(u.Sanitized())
	if err != nil {
		return "", err
	}
	token := uuid.NewString()
	if err := s.rdb.Set(ctx, key(token), b, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Get loads the user and slides the expiry.
func (s *Store) Get(ctx context.Context, token string) (model.User, error) {
	if token == "" {
		return model.User{}, ErrNoSession
	}
	b, err := s.rdb.GetEx(ctx, key(token), s.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.User{}, ErrNoSession
	}
	if err != nil {
		return model.User{}, fmt.Errorf("load session: %w", err)
	}
	var u model.User
	if err := json.Unmarshal(b, &u); err != nil {
		return model.User{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if u.ID == "" {
		return model.User{}, fmt.Errorf("%w: user has no identifier", ErrCorrupt)
	}
	return u, nil
}

// Replace overwrites the whole record; sessions are never patched.
func (s *Store) Replace(ctx context.Context, token string, u model.User) error {
	if u.ID == "" {
		return fmt.Errorf("%w: user has no identifier", ErrCorrupt)
	}
	b, err := json.Marshal(u.Sanitized())
	if err != nil {
		return err
	}
	n, err := s.rdb.Exists(ctx, key(token)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoSession
	}
	return s.rdb.Set(ctx, key(token), b, s.ttl).Err()
}

func (s *Store) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.rdb.Del(ctx, key(token)).Err()
}

func key(token string) string { return fmt.Sprintf(redisx.KeySession, token) }
