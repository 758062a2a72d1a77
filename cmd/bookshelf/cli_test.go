package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"git.sr.ht/~jackmordaunt/bookshelf"
	"git.sr.ht/~jackmordaunt/bookshelf/internal/config"
	"git.sr.ht/~jackmordaunt/bookshelf/persist"
	"git.sr.ht/~jackmordaunt/bookshelf/storage/file"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI against dir and returns stdout and stderr.
func run(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd(&stdout, &stderr)
	cmd.SetArgs(append([]string{
		"--config", filepath.Join(dir, "missing.yaml"),
		"--path", dir,
		"--no-color",
	}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// configFile writes a config selecting driver and returns its path.
func configFile(t *testing.T, dir, driver string) string {
	t.Helper()
	path := filepath.Join(dir, "bookshelf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  driver: "+driver+"\n"), 0o644))
	return path
}

var idPattern = regexp.MustCompile(`#(\d+) Dune`)

func TestCLI_Lifecycle(t *testing.T) {
	dir := t.TempDir()

	// Missing config file is an error when named explicitly.
	_, _, err := run(t, dir, "list")
	require.Error(t, err)

	cfg := configFile(t, dir, "file")
	exec := func(args ...string) string {
		t.Helper()
		var stdout, stderr bytes.Buffer
		cmd := NewRootCmd(&stdout, &stderr)
		cmd.SetArgs(append([]string{"--config", cfg, "--path", dir, "--no-color"}, args...))
		require.NoError(t, cmd.Execute(), stderr.String())
		return stdout.String()
	}

	out := exec("list")
	assert.Contains(t, out, "Unread (0 Books)")

	out = exec("add", "--title", "  Dune ", "--author", "Herbert", "--year", "1965")
	assert.Contains(t, out, "Unread (1 Book)")
	assert.Contains(t, out, "Dune by Herbert (1965)")
	m := idPattern.FindStringSubmatch(out)
	require.Len(t, m, 2)
	id := m[1]

	out = exec("toggle", id)
	assert.Contains(t, out, "Unread (0 Books)")
	assert.Contains(t, out, "Read (1 Book)")

	out = exec("edit", id, "--title", "Dune Messiah", "--year", "1969")
	assert.Contains(t, out, "Dune Messiah by Herbert (1969)")
	assert.Contains(t, out, "Read (1 Book)")

	out = exec("edit", id, "--unread")
	assert.Contains(t, out, "Unread (1 Book)")

	out = exec("add", "-t", "Emma", "-a", "Jane Austen", "-y", "1815", "--read")
	assert.Contains(t, out, "Read (1 Book)")

	out = exec("search", "austen")
	assert.Contains(t, out, "Emma")
	assert.NotContains(t, out, "Messiah")

	out = exec("search")
	assert.Contains(t, out, "Emma")
	assert.Contains(t, out, "Messiah")

	out = exec("delete", id)
	assert.Contains(t, out, "Unread (0 Books)")
	out = exec("delete", id)
	assert.Contains(t, out, "no book with id "+id)

	// The shelf is saved in the documented layout.
	slot := &file.Storer{Dir: dir}
	c, err := persist.New(slot, "", zerolog.Nop()).Load()
	require.NoError(t, err)
	assert.Empty(t, c.Unread)
	require.Len(t, c.Read, 1)
	assert.Equal(t, "Emma", c.Read[0].Title)
}

func TestCLI_Clear(t *testing.T) {
	dir := t.TempDir()
	cfg := configFile(t, dir, "file")
	exec := func(args ...string) (string, error) {
		var stdout, stderr bytes.Buffer
		cmd := NewRootCmd(&stdout, &stderr)
		cmd.SetArgs(append([]string{"--config", cfg, "--path", dir, "--no-color"}, args...))
		err := cmd.Execute()
		return stdout.String(), err
	}
	_, err := exec("add", "-t", "Dune", "-a", "Herbert", "-y", "1965")
	require.NoError(t, err)
	path := filepath.Join(dir, persist.DefaultKey+".json")
	require.FileExists(t, path)

	_, err = exec("clear")
	assert.ErrorIs(t, err, errNotConfirmed)
	require.FileExists(t, path)

	out, err := exec("clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Unread (0 Books)")
	assert.NoFileExists(t, path)

	out, err = exec("list")
	require.NoError(t, err)
	assert.NotContains(t, out, "Dune")
}

func TestCLI_Drivers(t *testing.T) {
	for _, driver := range []string{config.DriverBolt, config.DriverStorm, config.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			dir := t.TempDir()
			cfg := configFile(t, dir, driver)
			exec := func(args ...string) string {
				t.Helper()
				var stdout, stderr bytes.Buffer
				cmd := NewRootCmd(&stdout, &stderr)
				cmd.SetArgs(append([]string{"--config", cfg, "--path", dir, "--no-color"}, args...))
				require.NoError(t, cmd.Execute(), stderr.String())
				return stdout.String()
			}
			exec("add", "-t", "Dune", "-a", "Herbert", "-y", "1965")
			out := exec("list")
			assert.Contains(t, out, "Dune by Herbert (1965)")
		})
	}
}

func TestCLI_MemStorage(t *testing.T) {
	dir := t.TempDir()
	cfg := configFile(t, dir, "file")
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd(&stdout, &stderr)
	cmd.SetArgs([]string{"--config", cfg, "--mem-storage", "--no-color", "add", "-t", "Dune", "-a", "Herbert", "-y", "1965"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, stdout.String(), "Dune")

	_, err := os.Stat(filepath.Join(dir, persist.DefaultKey+".json"))
	assert.True(t, os.IsNotExist(err))
}

func TestCLI_InvalidInput(t *testing.T) {
	dir := t.TempDir()
	cfg := configFile(t, dir, "file")
	for name, args := range map[string][]string{
		"no title":     {"add", "--author", "Herbert", "--year", "1965"},
		"bad year":     {"add", "--title", "Dune", "--author", "Herbert", "--year", "soon"},
		"bad id":       {"toggle", "abc"},
		"both states":  {"add", "-t", "x", "-a", "y", "-y", "1", "--read", "--unread"},
		"bad driver":   {"--driver", "redis", "list"},
		"missing id":   {"delete"},
		"unknown verb": {"shelve"},
	} {
		t.Run(name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			cmd := NewRootCmd(&stdout, &stderr)
			cmd.SetArgs(append([]string{"--config", cfg, "--path", dir, "--no-color"}, args...))
			assert.Error(t, cmd.Execute())
		})
	}
}

func TestCLI_StorageUnavailable(t *testing.T) {
	dir := t.TempDir()
	// A regular file where the storage directory should be.
	blocker := filepath.Join(dir, "blocked")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	cfg := configFile(t, dir, "file")

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd(&stdout, &stderr)
	cmd.SetArgs([]string{"--config", cfg, "--path", filepath.Join(blocker, "shelf"), "--no-color",
		"add", "-t", "Dune", "-a", "Herbert", "-y", "1965"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, stdout.String(), "Dune by Herbert (1965)")
	assert.Contains(t, stderr.String(), "Storage is not available")
}

func TestCLI_WatchNeedsFileDriver(t *testing.T) {
	dir := t.TempDir()
	cfg := configFile(t, dir, "bolt")
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd(&stdout, &stderr)
	cmd.SetArgs([]string{"--config", cfg, "--path", dir, "--no-color", "watch"})
	assert.ErrorIs(t, cmd.Execute(), errNotWatchable)
}

// syncBuffer is written by the watch loop while the test reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestCLI_Watch(t *testing.T) {
	dir := t.TempDir()
	cfg := configFile(t, dir, "file")

	var stdout, stderr syncBuffer
	cmd := NewRootCmd(&stdout, &stderr)
	cmd.SetArgs([]string{"--config", cfg, "--path", dir, "--no-color", "watch"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errs := make(chan error, 1)
	go func() { errs <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(stdout.String()), []byte("Unread (0 Books)"))
	}, 5*time.Second, 10*time.Millisecond)

	// Another process writes the shelf.
	other := persist.New(&file.Storer{Dir: dir}, "", zerolog.Nop())
	require.NoError(t, other.Save(bookshelf.Collection{
		Unread: []bookshelf.Book{{ID: 1, Title: "Dune", Author: "Herbert", Year: 1965}},
	}))

	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(stdout.String()), []byte("#1 Dune by Herbert (1965)"))
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errs:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
