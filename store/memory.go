package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/hupe1980/roundtable/core"
)

// InMemoryStore is a volatile ResultStore keeping results in a process local
// map. It is safe for concurrent access and best suited for tests or
// ephemeral demos. Results are cloned on the way in and out to prevent
// external mutation of stored state.
type InMemoryStore struct {
	mu      sync.RWMutex
	results map[string]*core.SessionResult
}

// NewInMemoryStore constructs an empty in-memory result store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{results: make(map[string]*core.SessionResult)}
}

// Save stores a clone of result under its key, deriving one when empty.
// Saving under an existing key replaces the stored result.
func (s *InMemoryStore) Save(ctx context.Context, result *core.SessionResult) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r, err := Prepare(result)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.Key] = r
	return r.Key, nil
}

// Get returns a clone of the stored result.
func (s *InMemoryStore) Get(ctx context.Context, key string) (*core.SessionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[key]
	if !ok {
		return nil, fmt.Errorf("result %q: %w", key, core.ErrNotFound)
	}
	return r.Clone(), nil
}

// List returns clones of all stored results, newest first.
func (s *InMemoryStore) List(ctx context.Context) ([]*core.SessionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := lo.MapToSlice(s.results, func(_ string, r *core.SessionResult) *core.SessionResult { return r.Clone() })
	s.mu.RUnlock()

	SortNewestFirst(out)
	return out, nil
}

// Delete removes a stored result.
func (s *InMemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[key]; !ok {
		return fmt.Errorf("result %q: %w", key, core.ErrNotFound)
	}
	delete(s.results, key)
	return nil
}

// Len returns the number of stored results.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

// Prepare validates result and returns a clone carrying its storage key.
// Backends call it before writing.
func Prepare(result *core.SessionResult) (*core.SessionResult, error) {
	if result == nil {
		return nil, fmt.Errorf("%w: nil result", core.ErrInvalidConfiguration)
	}
	if result.ID == "" {
		return nil, fmt.Errorf("%w: result without id", core.ErrInvalidConfiguration)
	}

	r := result.Clone()
	if r.Key == "" {
		at := r.FinishedAt
		if at.IsZero() {
			at = time.Now()
		}
		r.Key = core.ResultKey(at, r.ID)
	}
	return r, nil
}

// SortNewestFirst orders results by finish time, newest first, breaking ties
// by key.
func SortNewestFirst(results []*core.SessionResult) {
	slices.SortStableFunc(results, func(a, b *core.SessionResult) int {
		if c := b.FinishedAt.Compare(a.FinishedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.Key, a.Key)
	})
}

