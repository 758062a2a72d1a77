package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"git.sr.ht/~jackmordaunt/bookshelf/storage"
	"git.sr.ht/~jackmordaunt/bookshelf/storage/storagetest"
	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestStorer(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	storagetest.Run(t, s)
}

func TestStorer_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put("LOCAL_BOOKSHELF", []byte("{}")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "LOCAL_BOOKSHELF.json", entries[0].Name())
}

func TestStorer_DirectoryRemoved(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shelf")
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(dir))

	assert.ErrorIs(t, s.Put("k", []byte("v")), storage.ErrUnavailable)
	_, err = s.Get("k")
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}

func TestWatch(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	changed := make(chan struct{}, 16)
	done, err := s.Watch(ctx, "shelf", func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, nil)
	require.NoError(t, err)

	require.NoError(t, s.Put("other", []byte("ignored")))
	require.NoError(t, s.Put("shelf", []byte("x")))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	s := &Storer{Dir: filepath.Join(t.TempDir(), "nope")}
	_, err := s.Watch(context.Background(), "shelf", func() {}, nil)
	assert.Error(t, err)
}

func TestWatch_ReportsErrors(t *testing.T) {
	var (
		events  = make(chan fsnotify.Event)
		errs    = make(chan error, 1)
		changes int
		got     []error
	)
	errs <- errors.New("queue overflow")
	close(errs)
	watch(context.Background(), events, errs, "/shelf/k.json", func() { changes++ }, func(err error) {
		got = append(got, err)
	})

	require.Len(t, got, 1)
	assert.Contains(t, got[0].Error(), "queue overflow")
	assert.Contains(t, got[0].Error(), "k.json")
	assert.Zero(t, changes)
}

func TestWatch_FiltersTarget(t *testing.T) {
	var (
		events  = make(chan fsnotify.Event, 3)
		changes int
	)
	events <- fsnotify.Event{Name: "/shelf/other.json", Op: fsnotify.Write}
	events <- fsnotify.Event{Name: "/shelf/k.json", Op: fsnotify.Chmod}
	events <- fsnotify.Event{Name: "/shelf/k.json", Op: fsnotify.Rename}
	close(events)
	// Errors are dropped without a callback.
	errs := make(chan error)
	watch(context.Background(), events, errs, "/shelf/k.json", func() { changes++ }, nil)
	assert.Equal(t, 1, changes)
}
