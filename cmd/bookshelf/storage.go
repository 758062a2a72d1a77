package main

import (
	"fmt"
	"os"
	"path/filepath"

	"git.sr.ht/~jackmordaunt/bookshelf/internal/config"
	"git.sr.ht/~jackmordaunt/bookshelf/storage"
	"git.sr.ht/~jackmordaunt/bookshelf/storage/bolt"
	"git.sr.ht/~jackmordaunt/bookshelf/storage/file"
	"git.sr.ht/~jackmordaunt/bookshelf/storage/lazy"
	"git.sr.ht/~jackmordaunt/bookshelf/storage/mem"
	"git.sr.ht/~jackmordaunt/bookshelf/storage/sqlite"
	"git.sr.ht/~jackmordaunt/bookshelf/storage/storm"
)

// openSlot returns the storage driver selected by cfg.
func openSlot(cfg config.Config) (storage.Slot, error) {
	slot, err := func() (storage.Slot, error) {
		switch cfg.Storage.Driver {
		case config.DriverMem:
			return mem.New(), nil
		case config.DriverFile:
			return file.Open(cfg.Location())
		}
		db := cfg.Location()
		if err := os.MkdirAll(filepath.Dir(db), 0o755); err != nil {
			return nil, fmt.Errorf("data dir: %w", err)
		}
		switch cfg.Storage.Driver {
		case config.DriverBolt:
			return bolt.Open(db)
		case config.DriverStorm:
			return storm.Open(db)
		case config.DriverSQLite:
			return sqlite.Open(db)
		}
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}()
	if err != nil {
		return nil, err
	}
	if cfg.Storage.Lazy && cfg.Storage.Driver != config.DriverMem {
		return lazy.New(slot), nil
	}
	return slot, nil
}

// closeSlot releases the slot if it holds resources.
func closeSlot(slot storage.Slot) error {
	if closer, ok := slot.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// fileSlot digs the file storer out from behind an optional lazy cache.
func fileSlot(slot storage.Slot) (*file.Storer, *lazy.Storer, bool) {
	switch s := slot.(type) {
	case *file.Storer:
		return s, nil, true
	case *lazy.Storer:
		if f, ok := s.Disk.(*file.Storer); ok {
			return f, s, true
		}
	}
	return nil, nil, false
}
