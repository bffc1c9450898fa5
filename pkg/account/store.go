// Package account stores teacher credentials. Passwords are kept as
// bcrypt hashes only.
package account

import (
	"classroom/take-a-number/queue-server/pkg/config"
	"classroom/take-a-number/queue-server/pkg/infra"
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const hashCost = 10

var (
	ErrAccountExists      = errors.New("teacher already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingCredentials = errors.New("username and password required")
)

type Store interface {
	// Create adds a teacher. Fails with ErrAccountExists.
	Create(ctx context.Context, username, password string) error

	// Verify checks a password. Fails with ErrInvalidCredentials for an
	// unknown username or a wrong password.
	Verify(ctx context.Context, username, password string) error

	// List returns usernames in ascending order.
	List(ctx context.Context) ([]string, error)
}

// ProvideStore picks redis when a host is configured.
func ProvideStore(config *config.Config, loggerFactory *infra.LoggerFactory) Store {
	logger := loggerFactory.Create("AccountStore").Sugar()
	if config.RedisHost == "" {
		logger.Warnf("no redis host configured, teacher accounts are kept in memory")
		return NewMemoryStore()
	}

	logger.Infof("teacher accounts in redis host[%v] db[%v]", config.RedisHost, config.RedisDB)
	return NewRedisStore(infra.NewRedisClient(config.RedisHost, config.RedisDB, loggerFactory))
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func comparePassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("comparing password: %w", err)
	}
	return nil
}

func validate(username, password string) error {
	if username == "" || password == "" {
		return ErrMissingCredentials
	}
	return nil
}
