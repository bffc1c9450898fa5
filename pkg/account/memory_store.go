package account

import (
	"context"
	"sync"

	"github.com/emirpasic/gods/maps/treemap"
)

// MemoryStore keeps accounts for the lifetime of the process.
type MemoryStore struct {
	mu sync.RWMutex

	// Key value: username -> bcrypt hash. Sorted by username.
	hashes *treemap.Map
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hashes: treemap.NewWithStringComparator(),
	}
}

func (s *MemoryStore) Create(ctx context.Context, username, password string) error {
	if err := validate(username, password); err != nil {
		return err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hashes.Get(username); ok {
		return ErrAccountExists
	}
	s.hashes.Put(username, hash)
	return nil
}

func (s *MemoryStore) Verify(ctx context.Context, username, password string) error {
	if err := validate(username, password); err != nil {
		return err
	}

	s.mu.RLock()
	value, ok := s.hashes.Get(username)
	s.mu.RUnlock()
	if !ok {
		return ErrInvalidCredentials
	}
	return comparePassword(value.(string), password)
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	usernames := make([]string, 0, s.hashes.Size())
	for _, key := range s.hashes.Keys() {
		usernames = append(usernames, key.(string))
	}
	return usernames, nil
}
