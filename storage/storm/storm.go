package storm

import (
	"errors"
	"fmt"

	"git.sr.ht/~jackmordaunt/bookshelf/storage"

	"github.com/asdine/storm/v3"
	bolt "go.etcd.io/bbolt"
)

var _ storage.Slot = (*Storer)(nil)

// Bucket holding slot values.
const Bucket = "slots"

// Storer implements slot storage using storm db.
type Storer struct {
	DB *storm.DB
}

// Open a database handle using the file specified by path.
func Open(path string) (*Storer, error) {
	db, err := storm.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening data file: %w", err)
	}
	return &Storer{DB: db}, nil
}

func (s *Storer) Get(key string) ([]byte, error) {
	var v []byte
	if err := s.DB.Get(Bucket, key, &v); err != nil {
		if errors.Is(err, storm.ErrNotFound) {
			return nil, fmt.Errorf("key %q: %w", key, storage.ErrNotFound)
		}
		return nil, unavailable(err)
	}
	return v, nil
}

func (s *Storer) Put(key string, value []byte) error {
	if err := s.DB.Set(Bucket, key, value); err != nil {
		return fmt.Errorf("saving %q: %w", key, unavailable(err))
	}
	return nil
}

func (s *Storer) Delete(key string) error {
	if err := s.DB.Delete(Bucket, key); err != nil && !errors.Is(err, storm.ErrNotFound) {
		return unavailable(err)
	}
	return nil
}

func (s *Storer) Close() error {
	return s.DB.Close()
}

func unavailable(err error) error {
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return fmt.Errorf("%v: %w", err, storage.ErrUnavailable)
	}
	return err
}
