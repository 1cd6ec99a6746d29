// internal/store/store.go
package store

import (
	"sync"

	"librarydesk/internal/domain"
)

// Store owns every student, book and librarian held by the process.
// All access goes through Update or View so that one lock guards the
// whole dataset.
type Store struct {
	mu         sync.RWMutex
	students   collection[domain.Student]
	books      collection[domain.Book]
	librarians collection[domain.Librarian]
}

// New creates an empty store.
func New() *Store {
	return &Store{
		students:   newCollection[domain.Student](),
		books:      newCollection[domain.Book](),
		librarians: newCollection[domain.Librarian](),
	}
}

// Update runs fn with exclusive access to the store.
func (s *Store) Update(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&Tx{s: s, writable: true})
}

// View runs fn with shared, read-only access to the store.
func (s *Store) View(fn func(tx *Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&Tx{s: s})
}

// collection is a keyed set that remembers insertion order.
type collection[T any] struct {
	items map[string]*T
	order []string
}

func newCollection[T any]() collection[T] {
	return collection[T]{items: make(map[string]*T)}
}

func (c *collection[T]) get(id string) (*T, bool) {
	v, ok := c.items[id]
	return v, ok
}

func (c *collection[T]) add(id string, v *T) bool {
	if _, ok := c.items[id]; ok {
		return false
	}
	c.items[id] = v
	c.order = append(c.order, id)
	return true
}

func (c *collection[T]) remove(id string) bool {
	if _, ok := c.items[id]; !ok {
		return false
	}
	delete(c.items, id)
	for i, k := range c.order {
		if k == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

func (c *collection[T]) each(fn func(*T)) {
	for _, id := range c.order {
		fn(c.items[id])
	}
}

func (c *collection[T]) len() int {
	return len(c.order)
}
