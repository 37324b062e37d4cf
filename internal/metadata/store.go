package metadata

import (
	"errors"
	"slices"
	"strings"
	"sync"
)

// ErrNotFound is returned when a document has no stored metadata.
var ErrNotFound = errors.New("metadata not found")

// ErrClosed is returned by a closed store.
var ErrClosed = errors.New("metadata store closed")

// Store holds one JSON blob per document URI.
type Store interface {
	// Get returns the stored blob or ErrNotFound.
	Get(uri string) ([]byte, error)

	// Put replaces the blob.
	Put(uri string, data []byte) error

	// Delete removes the blob. Deleting a missing entry is not an error.
	Delete(uri string) error

	// URIs lists the stored documents whose URI starts with prefix, sorted.
	URIs(prefix string) ([]string, error)

	Close() error
}

// MemoryStore is a Store kept in memory.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Get(uri string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	v, ok := s.data[uri]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v), nil
}

func (s *MemoryStore) Put(uri string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.data[uri] = slices.Clone(data)
	return nil
}

func (s *MemoryStore) Delete(uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	delete(s.data, uri)
	return nil
}

func (s *MemoryStore) URIs(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	var out []string
	for uri := range s.data {
		if strings.HasPrefix(uri, prefix) {
			out = append(out, uri)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
