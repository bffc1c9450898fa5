package account

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"
)

// Redis hash holding every teacher. Field: username, value: bcrypt hash.
const teachersRedisKey = "teachers"

type RedisStore struct {
	redisClient *redis.Client
}

func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{redisClient: redisClient}
}

func (s *RedisStore) Create(ctx context.Context, username, password string) error {
	if err := validate(username, password); err != nil {
		return err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	created, err := s.redisClient.HSetNX(ctx, teachersRedisKey, username, hash).Result()
	if err != nil {
		return fmt.Errorf("storing teacher %s: %w", username, err)
	}
	if !created {
		return ErrAccountExists
	}
	return nil
}

func (s *RedisStore) Verify(ctx context.Context, username, password string) error {
	if err := validate(username, password); err != nil {
		return err
	}

	hash, err := s.redisClient.HGet(ctx, teachersRedisKey, username).Result()
	if errors.Is(err, redis.Nil) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("reading teacher %s: %w", username, err)
	}
	return comparePassword(hash, password)
}

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	usernames, err := s.redisClient.HKeys(ctx, teachersRedisKey).Result()
	if err != nil {
		return nil, fmt.Errorf("listing teachers: %w", err)
	}
	sort.Strings(usernames)
	return usernames, nil
}
