package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	authKeySuffix   = ":auth"
	searchKeySuffix = ":recent_searches"
)

// RedisStore keeps the session in Redis so several devices of one user can share it.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	if prefix = strings.TrimSpace(prefix); prefix == "" {
		prefix = "skillmatch"
	}

	return &RedisStore{rdb: rdb, prefix: prefix}, nil
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}

func (r *RedisStore) LoadAuth(ctx context.Context) (*Auth, error) {
	raw, err := r.rdb.Get(ctx, r.prefix+authKeySuffix).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get auth: %w", err)
	}

	var auth Auth
	if err := json.Unmarshal(raw, &auth); err != nil {
		return nil, fmt.Errorf("decode auth: %w", err)
	}
	return &auth, nil
}

func (r *RedisStore) SaveAuth(ctx context.Context, auth *Auth) error {
	raw, err := json.Marshal(auth)
	if err != nil {
		return fmt.Errorf("encode auth: %w", err)
	}
	if err := r.rdb.Set(ctx, r.prefix+authKeySuffix, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set auth: %w", err)
	}
	return nil
}

func (r *RedisStore) ClearAuth(ctx context.Context) error {
	if err := r.rdb.Del(ctx, r.prefix+authKeySuffix).Err(); err != nil {
		return fmt.Errorf("redis del auth: %w", err)
	}
	return nil
}

func (r *RedisStore) RecentSearches(ctx context.Context) ([]string, error) {
	terms, err := r.rdb.LRange(ctx, r.prefix+searchKeySuffix, 0, MaxRecentSearches-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange searches: %w", err)
	}
	return terms, nil
}

// PushSearch removes case-insensitive duplicates of term, pushes it to the head and trims the list.
func (r *RedisStore) PushSearch(ctx context.Context, term string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = MaxRecentSearches
	}
	key := r.prefix + searchKeySuffix

	existing, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange searches: %w", err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, v := range existing {
			if strings.EqualFold(v, term) {
				pipe.LRem(ctx, key, 0, v)
			}
		}
		pipe.LPush(ctx, key, term)
		pipe.LTrim(ctx, key, 0, int64(limit-1))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis push search: %w", err)
	}

	return r.RecentSearches(ctx)
}
