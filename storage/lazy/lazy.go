// Package lazy implements a lazy storage that only touches the
// disk when necessary.
package lazy

import (
	"bytes"
	"errors"
	"fmt"

	"git.sr.ht/~jackmordaunt/bookshelf/storage"
	"git.sr.ht/~jackmordaunt/bookshelf/storage/mem"
)

var _ storage.Slot = (*Storer)(nil)

// Storer writes to disk when a change has been detected.
type Storer struct {
	Cache *mem.Storer
	Disk  storage.Slot
	// Writes counts the Puts that reached the disk.
	Writes int
}

// New wraps disk with an in-memory cache.
func New(disk storage.Slot) *Storer {
	return &Storer{
		Cache: mem.New(),
		Disk:  disk,
	}
}

// Get a value, populating the cache from disk on a miss.
func (s *Storer) Get(key string) ([]byte, error) {
	if v, err := s.Cache.Get(key); err == nil {
		return v, nil
	}
	v, err := s.Disk.Get(key)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.Put(key, v); err != nil {
		return nil, fmt.Errorf("saving to cache: %w", err)
	}
	return v, nil
}

// Put a value. Only saves to disk if changed.
func (s *Storer) Put(key string, value []byte) error {
	old, err := s.Get(key)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if err == nil && bytes.Equal(old, value) {
		return nil
	}
	if err := s.Disk.Put(key, value); err != nil {
		return fmt.Errorf("saving to disk: %w", err)
	}
	s.Writes++
	return s.Cache.Put(key, value)
}

// Delete a value from both cache and disk.
func (s *Storer) Delete(key string) error {
	if err := s.Disk.Delete(key); err != nil {
		return fmt.Errorf("deleting from disk: %w", err)
	}
	return s.Cache.Delete(key)
}

// Refresh drops the cached value so that the next Get reads from disk.
// Used when the disk is known to have been changed by someone else.
func (s *Storer) Refresh(key string) {
	delete(s.Cache.Data, key)
}

// Close the underlying disk if it can be closed.
func (s *Storer) Close() error {
	if closer, ok := s.Disk.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
