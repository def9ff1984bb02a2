package account

import (
	"context"
	"errors"
	"sync"

	"github.com/simple-bank/simple_bank/internal/apperrors"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Account
}

// NewMemoryRepository constructs an in-memory repository for tests and local development.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Account)}
}

func (r *memoryRepository) Create(_ context.Context, account Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[account.ID]; exists {
		return errors.New("account exists")
	}
	r.storage[account.ID] = account
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.storage[id]
	if !ok {
		return Account{}, apperrors.NotFound("account not found")
	}
	return account, nil
}

func (r *memoryRepository) Save(_ context.Context, accounts ...*Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range accounts {
		stored, ok := r.storage[a.ID]
		if !ok {
			return apperrors.NotFound("account not found")
		}
		if stored.Version != a.Version {
			return apperrors.Conflict("account was modified concurrently", nil)
		}
	}
	for _, a := range accounts {
		a.Version++
		r.storage[a.ID] = *a
	}
	return nil
}
