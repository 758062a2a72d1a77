// Package file stores each slot as a JSON document in a directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"git.sr.ht/~jackmordaunt/bookshelf/storage"
	"github.com/fsnotify/fsnotify"
)

var _ storage.Slot = (*Storer)(nil)

// Storer keeps one file per key under Dir.
type Storer struct {
	Dir string
}

// Open a storer rooted at dir, creating it if needed.
func Open(dir string) (*Storer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("preparing directory: %w", err)
	}
	return &Storer{Dir: dir}, nil
}

// Path of the file backing key.
func (s *Storer) Path(key string) string {
	return filepath.Join(s.Dir, key+".json")
}

func (s *Storer) Get(key string) ([]byte, error) {
	v, err := os.ReadFile(s.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		if _, statErr := os.Stat(s.Dir); statErr != nil {
			return nil, fmt.Errorf("directory %q: %w", s.Dir, storage.ErrUnavailable)
		}
		return nil, fmt.Errorf("key %q: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", key, err)
	}
	return v, nil
}

// Put writes to a temporary file and renames it over the old one so that
// readers never see a partial document.
func (s *Storer) Put(key string, value []byte) error {
	if _, err := os.Stat(s.Dir); err != nil {
		return fmt.Errorf("directory %q: %w", s.Dir, storage.ErrUnavailable)
	}
	tmp, err := os.CreateTemp(s.Dir, "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path(key)); err != nil {
		return fmt.Errorf("replacing %q: %w", key, err)
	}
	return nil
}

func (s *Storer) Delete(key string) error {
	if err := os.Remove(s.Path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %q: %w", key, err)
	}
	return nil
}

// Watch calls fn from a background goroutine each time the file backing key
// is written, created, renamed into place or removed. Watcher errors are
// passed to onErr, which may be nil. Watching stops when ctx is done; the
// returned channel is closed once the goroutine has exited.
//
// fn must not touch bookshelf state directly; hand the notification over to
// the goroutine that owns the state.
func (s *Storer) Watch(ctx context.Context, key string, fn func(), onErr func(error)) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	// Watch the directory: renames replace the file inode.
	if err := w.Add(s.Dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %q: %w", s.Dir, err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer w.Close()
		watch(ctx, w.Events, w.Errors, filepath.Clean(s.Path(key)), fn, onErr)
	}()
	return done, nil
}

// watch dispatches events for target until ctx is done or either channel
// closes.
func watch(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, target string, fn func(), onErr func(error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) ||
				ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
				fn()
			}
		case err, ok := <-errs:
			if !ok {
				return
			}
			if onErr != nil {
				onErr(fmt.Errorf("watching %q: %w", target, err))
			}
		}
	}
}
