package state

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage keeps conversation contexts in process memory. This is the
// default backend: contexts are intentionally lost on restart.
type MemoryStorage struct {
	mu       sync.RWMutex
	contexts map[int64]*Context
}

// NewMemoryStorage returns an empty in-memory Storage implementation.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		contexts: make(map[int64]*Context),
	}
}

// Get returns a copy of the stored context or ErrContextNotFound.
func (s *MemoryStorage) Get(_ context.Context, userID int64) (*Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.contexts[userID]
	if !ok {
		return nil, ErrContextNotFound
	}

	return cloneContext(conv), nil
}

// Set stores a copy of the context, stamping UpdatedAt.
func (s *MemoryStorage) Set(_ context.Context, userID int64, conv *Context) error {
	copied := cloneContext(conv)
	copied.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.contexts[userID] = copied
	return nil
}

// Clear removes the stored context for the given user.
func (s *MemoryStorage) Clear(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.contexts, userID)
	return nil
}

// GetAll returns copies of every stored context.
func (s *MemoryStorage) GetAll(_ context.Context) ([]*Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Context, 0, len(s.contexts))
	for _, conv := range s.contexts {
		result = append(result, cloneContext(conv))
	}

	return result, nil
}

func cloneContext(conv *Context) *Context {
	if conv == nil {
		return nil
	}

	copied := *conv
	return &copied
}
