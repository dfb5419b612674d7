package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the queue store adapter over Redis lists and hashes. The
// client is owned by the caller and closed at shutdown.
type RedisStore struct {
	client       redis.UniversalClient
	popExcluding *redis.Script
	indexOf      *redis.Script
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{
		client:       client,
		popExcluding: redis.NewScript(luaPopExcluding),
		indexOf:      redis.NewScript(luaIndexOf),
	}
}

// NewClient opens a client and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

// PopExcluding atomically removes the first entry of key whose track is not
// excludeTrackID. A zero excludeTrackID excludes nothing. ok is false when the
// list holds no usable entry.
func (s *RedisStore) PopExcluding(ctx context.Context, key string, excludeTrackID int64) (Entry, bool, error) {
	excluded := ""
	if excludeTrackID != 0 {
		excluded = strconv.FormatInt(excludeTrackID, 10)
	}
	token, err := s.popExcluding.Run(ctx, s.client, []string{key}, excluded).Text()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("pop from %s: %w", key, err)
	}
	entry, err := ParseEntry(token)
	if err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

// PushFront prepends an entry.
func (s *RedisStore) PushFront(ctx context.Context, key string, e Entry) error {
	if err := s.client.LPush(ctx, key, e.String()).Err(); err != nil {
		return fmt.Errorf("push front %s: %w", key, err)
	}
	return nil
}

// PushBack appends an entry.
func (s *RedisStore) PushBack(ctx context.Context, key string, e Entry) error {
	if err := s.client.RPush(ctx, key, e.String()).Err(); err != nil {
		return fmt.Errorf("push back %s: %w", key, err)
	}
	return nil
}

// Exists reports whether the exact entry is queued under key.
func (s *RedisStore) Exists(ctx context.Context, key string, e Entry) (bool, error) {
	idx, err := s.indexOf.Run(ctx, s.client, []string{key}, e.String()).Int64()
	if err != nil {
		return false, fmt.Errorf("scan %s: %w", key, err)
	}
	return idx >= 0, nil
}

// Len returns the list length of key.
func (s *RedisStore) Len(ctx context.Context, key string) (int64, error) {
	n, err := s.client.LLen(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("length of %s: %w", key, err)
	}
	return n, nil
}

// SetInHash records entry membership in the genre hash.
func (s *RedisStore) SetInHash(ctx context.Context, key string, e Entry) error {
	if err := s.client.HSet(ctx, key, e.String(), 1).Err(); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// InHash reports entry membership in the genre hash.
func (s *RedisStore) InHash(ctx context.Context, key string, e Entry) (bool, error) {
	ok, err := s.client.HExists(ctx, key, e.String()).Result()
	if err != nil {
		return false, fmt.Errorf("hexists %s: %w", key, err)
	}
	return ok, nil
}
