// Package storage specifies a durable key-value slot for bookshelf state.
// Sub packages implement the interface providing different storage strategies.
package storage

import "errors"

var (
	// ErrNotFound is returned by Get when no value is stored under a key.
	ErrNotFound = errors.New("slot is empty")
	// ErrUnavailable is returned when the storage medium cannot be used.
	ErrUnavailable = errors.New("storage unavailable")
)

// Slot stores opaque values under string keys.
type Slot interface {
	// Get the value stored under key, or ErrNotFound.
	Get(key string) ([]byte, error)
	// Put replaces the value stored under key in a single atomic write.
	Put(key string, value []byte) error
	// Delete the value stored under key. Deleting a missing key is not an error.
	Delete(key string) error
}
