package state

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Store holds one session value of type S per user. It is safe for concurrent use.
type Store[S any] struct {
	cache *lru.Cache[int64, S]
}

// NewStore returns a store that keeps at most capacity sessions.
func NewStore[S any](capacity int) (*Store[S], error) {
	cache, err := lru.New[int64, S](capacity)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	return &Store[S]{cache: cache}, nil
}

// Get returns the user's session, or the zero value of S when there is none.
func (m *Store[S]) Get(userID int64) S {
	s, _ := m.cache.Get(userID)
	return s
}

// Set replaces the user's session and marks it most recently used.
func (m *Store[S]) Set(userID int64, s S) {
	m.cache.Add(userID, s)
}
