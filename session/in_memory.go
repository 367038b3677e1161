package session

import (
	"errors"
	"sort"
	"sync"

	"github.com/kforcode-ai/miniagent/core"
)

// ErrNotFound is returned by Lookup for unknown thread ids.
var ErrNotFound = errors.New("thread not found")

// Store holds threads by id.
type Store interface {
	// Get returns the thread for id, creating it on first use.
	Get(id string) *core.Thread
	// Lookup returns the thread for id or ErrNotFound.
	Lookup(id string) (*core.Thread, error)
	// Create stores a fresh thread under id, replacing any existing one.
	Create(id string) *core.Thread
	Delete(id string)
	IDs() []string
}

// InMemoryStore is a volatile Store backed by a map. It is safe for
// concurrent access. Threads are returned by reference: they are live
// transcripts that turns keep appending to.
type InMemoryStore struct {
	mu      sync.RWMutex
	threads map[string]*core.Thread
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore constructs an empty in-memory thread store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{threads: make(map[string]*core.Thread)}
}

// Get implements Store.
func (s *InMemoryStore) Get(id string) *core.Thread {
	s.mu.RLock()
	t, ok := s.threads[id]
	s.mu.RUnlock()
	if ok {
		return t
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.threads[id]; ok {
		return t
	}
	return s.createLocked(id)
}

// Lookup implements Store.
func (s *InMemoryStore) Lookup(id string) (*core.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.threads[id]; ok {
		return t, nil
	}
	return nil, ErrNotFound
}

// Create implements Store.
func (s *InMemoryStore) Create(id string) *core.Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(id)
}

// Delete implements Store.
func (s *InMemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, id)
}

// IDs implements Store. The ids are sorted.
func (s *InMemoryStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.threads))
	for id := range s.threads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// createLocked allocates and stores a new thread; the caller holds the write lock.
func (s *InMemoryStore) createLocked(id string) *core.Thread {
	if id == "" {
		id = core.NewID()
	}
	t := core.NewThreadWithID(id)
	s.threads[id] = t
	return t
}
