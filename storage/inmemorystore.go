package storage

import (
	"fmt"
	"sync"
)

// InMemoryStore is a Store implementation powered by a map, to be used for
// testing or caches.
type InMemoryStore struct {
	sync.Mutex
	m map[string][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		m: make(map[string][]byte),
	}
}

func (s *InMemoryStore) Put(key string, value []byte) (err error) {
	s.Lock()
	s.m[key] = dup(value)
	s.Unlock()
	return nil
}

func (s *InMemoryStore) Get(key string) (value []byte, err error) {
	s.Lock()
	value, ok := s.m[key]
	s.Unlock()
	if !ok {
		return nil, fmt.Errorf("%.40q: %w", key, ErrNotFound)
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (s *InMemoryStore) Delete(key string) (err error) {
	s.Lock()
	delete(s.m, key)
	s.Unlock()
	return nil
}

func (s *InMemoryStore) Keys() (keys []string, err error) {
	s.Lock()
	keys = make([]string, 0, len(s.m))
	for key := range s.m {
		keys = append(keys, key)
	}
	s.Unlock()
	return keys, nil
}
