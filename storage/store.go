package storage

import (
	"errors"
)

// Store represents a key-value store holding one document per key.
// Implementations must be safe for concurrent use.
type Store interface {
	Put(key string, value []byte) (err error)

	// Get should return ErrNotFound if the key is not in the store.
	Get(key string) (value []byte, err error)

	// Delete removes a key-value pair. Deleting a key that is not in the
	// store is not an error.
	Delete(key string) (err error)

	// Keys returns every key currently in the store, in no particular
	// order.
	Keys() (keys []string, err error)
}

var (
	// ErrNotFound indicates a key is not in the store.
	ErrNotFound = errors.New("not found")
)

func dup(value []byte) []byte {
	if value == nil {
		return nil
	}
	other := make([]byte, len(value))
	copy(other, value)
	return other
}
