package memstore

import (
	"sync"

	"github.com/jrsteele09/go-merch-storefront/storage"
)

var _ storage.Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a storage.Repo for tests and throwaway CLI profiles
type InMemoryRepo struct {
	mu     sync.RWMutex
	values map[string]string
}

func New() *InMemoryRepo {
	return &InMemoryRepo{values: make(map[string]string)}
}

func (r *InMemoryRepo) Get(key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	value, ok := r.values[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return value, nil
}

func (r *InMemoryRepo) Set(key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.values[key] = value
	return nil
}

func (r *InMemoryRepo) Remove(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.values, key)
	return nil
}

// Has reports whether key currently holds a value
func (r *InMemoryRepo) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.values[key]
	return ok
}
