// Package cart keeps a client's shopping cart and mirrors every change to
// durable storage.
package cart

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jrsteele09/go-merch-storefront/internal/errors"
	"github.com/jrsteele09/go-merch-storefront/storage"
	"github.com/rs/zerolog/log"
)

var ErrInvalidItem = errors.ErrInvalidItem

// Store is the cart of one client. Every mutation rewrites the whole
// collection under storage.KeyCart.
type Store struct {
	repo storage.Repo

	mu     sync.RWMutex
	items  []Item
	loaded bool
	open   bool
}

func NewStore(repo storage.Repo) *Store {
	return &Store{repo: repo}
}

// Load reads the stored cart. Missing or corrupt data leaves an empty cart.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.loaded = true

	raw, ok, err := storage.GetOptional(s.repo, storage.KeyCart)
	if err != nil {
		log.Warn().Err(err).Msg("cart: reading stored cart")
		return
	}
	if !ok || raw == "" {
		return
	}

	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		log.Warn().Err(fmt.Errorf("%w: %w", errors.ErrStorageParse, err)).Msg("cart: stored cart is corrupt, starting empty")
		return
	}
	s.items = items
}

// Loaded reports whether Load has run
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Add folds item into the cart. An existing line with the same key has its
// quantity increased; otherwise the item is appended. The side panel opens.
func (s *Store) Add(item Item) error {
	if item.Quantity <= 0 {
		return fmt.Errorf("quantity %d: %w", item.Quantity, ErrInvalidItem)
	}
	if item.Price < 0 {
		return fmt.Errorf("price %v: %w", item.Price, ErrInvalidItem)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := false
	key := item.Key()
	for i := range s.items {
		if s.items[i].Key() == key {
			s.items[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		if item.Variant != nil {
			item.Variant = Variant(*item.Variant)
		}
		s.items = append(s.items, item)
	}
	s.open = true
	s.persist()
	return nil
}

// Remove deletes the line matching id and variant. Absent keys are a no-op.
func (s *Store) Remove(id int64, variant *string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := KeyOf(id, variant)
	kept := s.items[:0:0]
	for _, it := range s.items {
		if it.Key() != key {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(s.items) {
		return
	}
	s.items = kept
	s.persist()
}

// Clear empties the cart
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.persist()
}

// Items returns a copy of the cart lines in insertion order
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) IsEmpty() bool {
	return s.Len() == 0
}

// Count is the number of units across all lines
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

// Total is the sum of price times quantity. It is never stored.
func (s *Store) Total() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0.0
	for _, it := range s.items {
		total += it.Subtotal()
	}
	return total
}

func (s *Store) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open
}

// SetOpen shows or hides the side panel
func (s *Store) SetOpen(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = open
}

// persist must be called with mu held
func (s *Store) persist() {
	items := s.items
	if items == nil {
		items = []Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		log.Error().Err(err).Msg("cart: encoding cart")
		return
	}
	if err := s.repo.Set(storage.KeyCart, string(data)); err != nil {
		log.Error().Err(err).Msg("cart: storing cart")
	}
}
