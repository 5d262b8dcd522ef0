package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"developertok/internal/domain/account"
	errs "developertok/internal/errors"
)

// MemoryAccountStorage keeps accounts in process memory. It backs the
// development server when no MongoDB URI is configured.
type MemoryAccountStorage struct {
	mu       sync.RWMutex
	accounts map[string]account.Account
}

func NewMemoryAccountStorage() *MemoryAccountStorage {
	return &MemoryAccountStorage{accounts: make(map[string]account.Account)}
}

func (s *MemoryAccountStorage) Create(_ context.Context, acc account.Account) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range s.accounts {
		if v.Email == acc.Email {
			return account.Account{}, errs.ErrDuplicateEmail
		}
	}
	for _, v := range s.accounts {
		if v.Username == acc.Username {
			return account.Account{}, errs.ErrDuplicateUsername
		}
	}

	acc.ID = uuid.NewString()
	s.accounts[acc.ID] = cloneAccount(acc)
	return acc, nil
}

func (s *MemoryAccountStorage) FindByEmail(_ context.Context, email string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.accounts {
		if v.Email == email {
			return cloneAccount(v), nil
		}
	}
	return account.Account{}, errs.ErrUserNotFound
}

func (s *MemoryAccountStorage) FindByID(_ context.Context, id string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.accounts[id]
	if !ok {
		return account.Account{}, errs.ErrUserNotFound
	}
	v = cloneAccount(v)
	v.PasswordHash = ""
	return v, nil
}

func (s *MemoryAccountStorage) UpdateProgress(_ context.Context, id string, patch account.ProgressPatch, now time.Time) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.accounts[id]
	if !ok {
		return account.Account{}, errs.ErrUserNotFound
	}
	v = cloneAccount(v)
	v.ApplyProgress(patch, now)
	s.accounts[id] = v

	v = cloneAccount(v)
	v.PasswordHash = ""
	return v, nil
}

func (s *MemoryAccountStorage) TouchLastActive(_ context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.accounts[id]
	if !ok {
		return errs.ErrUserNotFound
	}
	v.Progress.LastActive = now
	s.accounts[id] = v
	return nil
}

func (s *MemoryAccountStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

func (s *MemoryAccountStorage) Ping(context.Context) error {
	return nil
}

func cloneAccount(a account.Account) account.Account {
	a.RecentActivity = slices.Clone(a.RecentActivity)
	a.Preferences.FavoriteTopics = slices.Clone(a.Preferences.FavoriteTopics)
	return a
}
