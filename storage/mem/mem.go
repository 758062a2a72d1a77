package mem

import (
	"fmt"

	"git.sr.ht/~jackmordaunt/bookshelf/storage"
)

var _ storage.Slot = (*Storer)(nil)

// Storer implements in-memory storage for slot values.
type Storer struct {
	Data map[string][]byte
	// Closed simulates a storage medium that has gone away.
	Closed bool
}

func New() *Storer {
	return &Storer{
		Data: make(map[string][]byte),
	}
}

func (s *Storer) Get(key string) ([]byte, error) {
	if s.Closed {
		return nil, storage.ErrUnavailable
	}
	v, ok := s.Data[key]
	if !ok {
		return nil, fmt.Errorf("key %q: %w", key, storage.ErrNotFound)
	}
	return append([]byte(nil), v...), nil
}

func (s *Storer) Put(key string, value []byte) error {
	if s.Closed {
		return storage.ErrUnavailable
	}
	if s.Data == nil {
		s.Data = make(map[string][]byte)
	}
	s.Data[key] = append([]byte(nil), value...)
	return nil
}

func (s *Storer) Delete(key string) error {
	if s.Closed {
		return storage.ErrUnavailable
	}
	delete(s.Data, key)
	return nil
}

// Close marks the storer unavailable.
func (s *Storer) Close() error {
	s.Closed = true
	return nil
}
