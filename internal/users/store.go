// Package users provides user persistence with a Redis cache in front of
// PostgreSQL. Email lookup is the hot path of every authenticated request,
// so it runs cache-aside; writes go straight to storage.
package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mhalushka/rolodex/internal/models"
)

const (
	cacheTTL           = 900 * time.Second
	cacheSchemaVersion = 1
)

// cachedUser is the cache wire form of a user row. It is a separate struct
// because models.User hides password and refresh_token from JSON, and the
// cache must round-trip both.
type cachedUser struct {
	ID           uint      `json:"id"`
	Email        string    `json:"email"`
	Password     string    `json:"password"`
	Avatar       *string   `json:"avatar"`
	RefreshToken *string   `json:"refresh_token"`
	Confirmed    bool      `json:"confirmed"`
	CreatedAt    time.Time `json:"created_at"`
}

// cacheEnvelope versions the cached payload. Entries written with a
// different schema count as misses, so shape changes never need a flush.
type cacheEnvelope struct {
	Version int        `json:"v"`
	User    cachedUser `json:"user"`
}

// Store mediates user reads through Redis. A cache entry may lag storage by
// up to its TTL after avatar or refresh-token updates; flows that cannot
// tolerate that read through GetByEmailFresh instead.
type Store struct {
	src Source
	rdb *redis.Client
}

func NewStore(src Source, rdb *redis.Client) *Store {
	return &Store{src: src, rdb: rdb}
}

// GetByEmail returns the user for email, serving from cache when possible
// and repopulating the cache on a miss. Absent users are (nil, nil) and are
// never cached.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	raw, err := s.rdb.Get(ctx, cacheKey(email)).Result()
	if err == nil {
		if user, ok := decodeCached(raw); ok {
			return user, nil
		}
		// Corrupt or stale-schema entry: treat as a miss and overwrite below.
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("cache lookup failed: %w", err)
	}

	user, err := s.src.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	if err := s.writeCache(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetByEmailFresh bypasses the cache entirely. Refresh-token validation uses
// it so a rotated token is rejected immediately, not after cache expiry.
func (s *Store) GetByEmailFresh(ctx context.Context, email string) (*models.User, error) {
	return s.src.FindByEmail(ctx, email)
}

func (s *Store) Create(ctx context.Context, user *models.User) error {
	return s.src.Insert(ctx, user)
}

func (s *Store) UpdateRefreshToken(ctx context.Context, email string, token *string) error {
	return s.src.SaveRefreshToken(ctx, email, token)
}

// UpdateAvatar persists the new avatar URL and returns the updated row, or
// (nil, nil) when no such user exists. The cache entry is left alone; stale
// avatars age out with the TTL.
func (s *Store) UpdateAvatar(ctx context.Context, email, avatarURL string) (*models.User, error) {
	return s.src.SaveAvatar(ctx, email, avatarURL)
}

// ConfirmEmail flips the confirmed flag and synchronously rewrites the cache
// entry, so a login immediately after confirmation never sees the old flag.
func (s *Store) ConfirmEmail(ctx context.Context, email string) error {
	if err := s.src.MarkConfirmed(ctx, email); err != nil {
		return err
	}
	user, err := s.src.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	return s.writeCache(ctx, user)
}

// Delete removes the user row and drops its cache entry.
func (s *Store) Delete(ctx context.Context, email string) error {
	if err := s.src.DeleteByEmail(ctx, email); err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, cacheKey(email)).Err(); err != nil {
		return fmt.Errorf("cache delete failed: %w", err)
	}
	return nil
}

func cacheKey(email string) string {
	return "user:" + email
}

func (s *Store) writeCache(ctx context.Context, user *models.User) error {
	payload, err := json.Marshal(cacheEnvelope{
		Version: cacheSchemaVersion,
		User: cachedUser{
			ID:           user.ID,
			Email:        user.Email,
			Password:     user.Password,
			Avatar:       user.Avatar,
			RefreshToken: user.RefreshToken,
			Confirmed:    user.Confirmed,
			CreatedAt:    user.CreatedAt,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to encode cached user: %w", err)
	}
	if err := s.rdb.Set(ctx, cacheKey(user.Email), payload, cacheTTL).Err(); err != nil {
		return fmt.Errorf("cache write failed: %w", err)
	}
	return nil
}

func decodeCached(raw string) (*models.User, bool) {
	var env cacheEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, false
	}
	if env.Version != cacheSchemaVersion {
		return nil, false
	}
	return &models.User{
		ID:           env.User.ID,
		Email:        env.User.Email,
		Password:     env.User.Password,
		Avatar:       env.User.Avatar,
		RefreshToken: env.User.RefreshToken,
		Confirmed:    env.User.Confirmed,
		CreatedAt:    env.User.CreatedAt,
	}, true
}
