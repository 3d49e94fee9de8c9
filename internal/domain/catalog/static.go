package catalog

import (
	"context"
	"sync"

	"stockflow/internal/core/apperror"
)

// Static is an in-memory ItemCatalog. It backs the memory storage driver and tests.
type Static struct {
	mu    sync.RWMutex
	items map[ItemRef]ItemState
}

// NewStatic creates an empty catalog.
func NewStatic(items ...ItemState) *Static {
	s := &Static{items: make(map[ItemRef]ItemState, len(items))}
	for _, it := range items {
		s.items[it.Item] = it
	}
	return s
}

// Upsert implements Store.
func (s *Static) Upsert(_ context.Context, state ItemState) error {
	if err := state.Item.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	state.Deleted = false
	s.items[state.Item] = state
	return nil
}

// SetDeletionMark implements Store.
func (s *Static) SetDeletionMark(_ context.Context, item ItemRef, marked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.items[item]
	if !ok {
		return apperror.NewNotFound(string(item.Kind)+" variant", item.ID)
	}
	st.Deleted = marked
	s.items[item] = st
	return nil
}

// Lookup implements ItemCatalog.
func (s *Static) Lookup(_ context.Context, item ItemRef) (ItemState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.items[item]
	if !ok {
		return ItemState{}, apperror.NewNotFound(string(item.Kind)+" variant", item.ID)
	}
	return st, nil
}

var _ Store = (*Static)(nil)
