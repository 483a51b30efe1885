package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "chyrp:client:"

// RedisStore keeps client state under a fixed key prefix so one server can
// be shared with other tools.
type RedisStore struct {
	rdb     *redis.Client
	timeout time.Duration
}

func NewRedis(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	s := NewRedisClient(redis.NewClient(opts))

	ctx, cancel := s.ctx()
	defer cancel()
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		s.rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logg.Info("store", "Connected to redis (address anonymized)")
	return s, nil
}

// NewRedisClient wraps an existing client.
func NewRedisClient(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, timeout: 5 * time.Second}
}

func (s *RedisStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *RedisStore) Get(key string) (string, bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	v, err := s.rdb.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		logg.Error("store", "Failed to read client state", err)
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) Set(key, value string) error {
	ctx, cancel := s.ctx()
	defer cancel()
	if err := s.rdb.Set(ctx, redisKeyPrefix+key, value, 0).Err(); err != nil {
		logg.Error("store", "Failed to write client state", err)
		return err
	}
	return nil
}

func (s *RedisStore) Delete(key string) error {
	ctx, cancel := s.ctx()
	defer cancel()
	if err := s.rdb.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		logg.Error("store", "Failed to delete client state", err)
		return err
	}
	return nil
}

func (s *RedisStore) Close() {
	if err := s.rdb.Close(); err != nil {
		logg.Error("store", "Error closing redis client", err)
	}
}
