package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"kitchensink/internal/model"
	"kitchensink/internal/repository"
)

// Every key carries the {refresh_token} hash tag so the multi-key
// transactions below stay in one Redis Cluster slot.
const (
	refreshTokenKeyPrefix = "{refresh_token}:token:"
	userTokenKeyPrefix    = "{refresh_token}:user:"

	maxWatchRetries = 16
)

// RedisTokenStore keeps refresh tokens in Redis. Each record lives under its
// token key with a TTL matching its expiry, plus a per-user pointer key.
type RedisTokenStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

var _ repository.TokenStore = (*RedisTokenStore)(nil)

// NewRedisTokenStore creates a new token store.
func NewRedisTokenStore(client redis.UniversalClient) *RedisTokenStore {
	return &RedisTokenStore{client: client, now: time.Now}
}

type tokenRecord struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// FindByToken retrieves a refresh token record.
func (s *RedisTokenStore) FindByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	data, err := s.client.Get(ctx, refreshTokenKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get refresh token: %w", err)
	}

	var rec tokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal token data: %w", err)
	}
	return &model.RefreshToken{
		ID:        rec.ID,
		Token:     token,
		UserID:    rec.UserID,
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
	}, nil
}

// Save stores a refresh token with a TTL up to its expiry, replacing the user's previous token.
func (s *RedisTokenStore) Save(ctx context.Context, token *model.RefreshToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = s.now()
	}
	payload, err := json.Marshal(tokenRecord{
		ID:        token.ID,
		UserID:    token.UserID,
		ExpiresAt: token.ExpiresAt,
		CreatedAt: token.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal token data: %w", err)
	}

	ttl := token.ExpiresAt.Sub(s.now())
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}

	userKey := userTokenKeyPrefix + token.UserID.String()
	err = s.watch(ctx, userKey, func(tx *redis.Tx) error {
		old, err := tx.Get(ctx, userKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if old != "" && old != token.Token {
				pipe.Del(ctx, refreshTokenKeyPrefix+old)
			}
			pipe.Set(ctx, refreshTokenKeyPrefix+token.Token, payload, ttl)
			pipe.Set(ctx, userKey, token.Token, ttl)
			return nil
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// Delete removes a refresh token and the user pointer if it still names it.
func (s *RedisTokenStore) Delete(ctx context.Context, token *model.RefreshToken) error {
	userKey := userTokenKeyPrefix + token.UserID.String()
	err := s.watch(ctx, userKey, func(tx *redis.Tx) error {
		held, err := tx.Get(ctx, userKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, refreshTokenKeyPrefix+token.Token)
			if held == token.Token {
				pipe.Del(ctx, userKey)
			}
			return nil
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

// DeleteByUserID removes the refresh token held by userID.
func (s *RedisTokenStore) DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	userKey := userTokenKeyPrefix + userID.String()
	var removed int64
	err := s.watch(ctx, userKey, func(tx *redis.Tx) error {
		removed = 0
		held, err := tx.Get(ctx, userKey).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		var del *redis.IntCmd
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, userKey)
			del = pipe.Del(ctx, refreshTokenKeyPrefix+held)
			return nil
		})
		if err != nil {
			return err
		}
		removed = del.Val()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete refresh tokens for user: %w", err)
	}
	return removed, nil
}

// watch runs fn under WATCH key, retrying while concurrent writers invalidate it.
func (s *RedisTokenStore) watch(ctx context.Context, key string, fn func(*redis.Tx) error) error {
	for i := 0; i < maxWatchRetries; i++ {
		err := s.client.Watch(ctx, fn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return redis.TxFailedErr
}

// DeleteExpired is a no-op: Redis expires records on its own.
func (s *RedisTokenStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}
