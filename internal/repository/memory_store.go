package repository

import (
	"context"
	"log/slog"
	"sync"

	"demo-bank/internal/domain"
	"demo-bank/internal/errors"
)

// MemoryStore keeps every user in process memory. Each user has its own
// mutex; the store-level lock only guards the maps themselves.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[int64]*domain.User
	byEmail map[string]int64
	locks   map[int64]*sync.Mutex
	logger  *slog.Logger
}

var _ domain.LedgerStore = (*MemoryStore)(nil)

func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	return &MemoryStore{
		users:   make(map[int64]*domain.User),
		byEmail: make(map[string]int64),
		locks:   make(map[int64]*sync.Mutex),
		logger:  logger,
	}
}

func (s *MemoryStore) userLock(id int64) (*sync.Mutex, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lock, ok := s.locks[id]
	return lock, ok
}

func (s *MemoryStore) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	lock, ok := s.userLock(id)
	if !ok {
		return nil, errors.ErrUserNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	user, ok := s.users[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.ErrUserNotFound
	}

	return user.Clone(), nil
}

func (s *MemoryStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	id, ok := s.byEmail[email]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	return s.GetUser(ctx, id)
}

func (s *MemoryStore) PutUser(ctx context.Context, user *domain.User) error {
	cp := user.Clone()

	s.mu.Lock()
	lock, ok := s.locks[cp.ID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[cp.ID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	if prev, ok := s.users[cp.ID]; ok && prev.Email != cp.Email {
		delete(s.byEmail, prev.Email)
	}
	s.users[cp.ID] = cp
	s.byEmail[cp.Email] = cp.ID
	s.mu.Unlock()

	s.logger.Debug("User stored", "user_id", cp.ID, "accounts", len(cp.Accounts), "transactions", len(cp.Transactions))
	return nil
}

// WithLock holds the user's mutex for the whole of fn. The working copy
// replaces the stored record only when fn succeeds.
func (s *MemoryStore) WithLock(ctx context.Context, id int64, fn func(user *domain.User) error) error {
	lock, ok := s.userLock(id)
	if !ok {
		return errors.ErrUserNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	user, ok := s.users[id]
	s.mu.RUnlock()
	if !ok {
		return errors.ErrUserNotFound
	}

	working := user.Clone()

	if err := fn(working); err != nil {
		return err
	}

	s.mu.Lock()
	s.users[id] = working
	s.mu.Unlock()
	return nil
}
