package bolt

import (
	"errors"
	"fmt"
	"time"

	"git.sr.ht/~jackmordaunt/bookshelf/storage"
	bolt "go.etcd.io/bbolt"
)

type Bucket []byte

func (b Bucket) String() string {
	return string(b)
}

var (
	BucketBookshelf Bucket = Bucket("Bookshelf")
)

var _ storage.Slot = (*Storer)(nil)

// Storer keeps slot values in a bolt bucket.
type Storer struct {
	*bolt.DB
}

func Open(path string) (*Storer, error) {
	db, err := bolt.Open(path, 0660, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening database file: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(BucketBookshelf); err != nil {
			return err
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing buckets: %w", err)
	}
	return &Storer{DB: db}, nil
}

func (db *Storer) Get(key string) (v []byte, err error) {
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(BucketBookshelf)
		if b == nil {
			return fmt.Errorf("bucket not initialized: %s", BucketBookshelf)
		}
		// Values are only valid for the life of the transaction.
		if raw := b.Get([]byte(key)); raw != nil {
			v = append([]byte{}, raw...)
		}
		return nil
	})
	if err != nil {
		return nil, unavailable(err)
	}
	if v == nil {
		return nil, fmt.Errorf("key %q: %w", key, storage.ErrNotFound)
	}
	return v, nil
}

func (db *Storer) Put(key string, value []byte) error {
	return unavailable(db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(BucketBookshelf).Put([]byte(key), value); err != nil {
			return fmt.Errorf("updating %q: %w", key, err)
		}
		return nil
	}))
}

func (db *Storer) Delete(key string) error {
	return unavailable(db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(BucketBookshelf).Delete([]byte(key))
	}))
}

// unavailable maps a closed database onto storage.ErrUnavailable.
func unavailable(err error) error {
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return fmt.Errorf("%v: %w", err, storage.ErrUnavailable)
	}
	return err
}
