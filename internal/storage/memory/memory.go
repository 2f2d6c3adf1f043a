package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"invoicing/internal/core"
)

// Store keeps invoices in process memory. It backs the memory data backend
// and tests.
type Store struct {
	mu    sync.RWMutex
	items map[string]core.Invoice
	now   func() time.Time
}

func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock uses now to date invoices inserted without a date.
func NewWithClock(now func() time.Time) *Store {
	return &Store{items: make(map[string]core.Invoice), now: now}
}

// Insert validates and stores a copy of the invoice.
func (s *Store) Insert(_ context.Context, inv core.Invoice) (core.Invoice, error) {
	if err := inv.Validate(); err != nil {
		return core.Invoice{}, err
	}
	stored := inv.Clone()
	stored.ID = uuid.NewString()
	if stored.Date.IsZero() {
		stored.Date = s.now()
	}
	stored.Date = stored.Date.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[stored.ID] = stored
	return stored.Clone(), nil
}

func (s *Store) FindByID(_ context.Context, id string) (core.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.items[id]
	if !ok {
		return core.Invoice{}, fmt.Errorf("get invoice %s: %w", id, core.ErrNotFound)
	}
	return inv.Clone(), nil
}

// FindByFilter returns matching invoices ordered by date, then id.
func (s *Store) FindByFilter(_ context.Context, f core.Filter) ([]core.Invoice, error) {
	s.mu.RLock()
	out := make([]core.Invoice, 0, len(s.items))
	for _, inv := range s.items {
		if f.Contains(inv.Date) {
			out = append(out, inv.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Len returns the number of stored invoices.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
