// Package storagetest checks storage.Slot implementations for conformance.
package storagetest

import (
	"testing"

	"git.sr.ht/~jackmordaunt/bookshelf/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises the behaviour every Slot must share.
func Run(t *testing.T, s storage.Slot) {
	t.Helper()

	t.Run("missing key", func(t *testing.T) {
		_, err := s.Get("missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("put then get", func(t *testing.T) {
		require.NoError(t, s.Put("shelf", []byte(`{"unread":[],"read":[]}`)))
		v, err := s.Get("shelf")
		require.NoError(t, err)
		assert.Equal(t, `{"unread":[],"read":[]}`, string(v))
	})

	t.Run("put overwrites", func(t *testing.T) {
		require.NoError(t, s.Put("shelf", []byte("first")))
		require.NoError(t, s.Put("shelf", []byte("second")))
		v, err := s.Get("shelf")
		require.NoError(t, err)
		assert.Equal(t, "second", string(v))
	})

	t.Run("keys are independent", func(t *testing.T) {
		require.NoError(t, s.Put("a", []byte("1")))
		require.NoError(t, s.Put("b", []byte("2")))
		v, err := s.Get("a")
		require.NoError(t, err)
		assert.Equal(t, "1", string(v))
	})

	t.Run("returned value is a copy", func(t *testing.T) {
		require.NoError(t, s.Put("copy", []byte("abc")))
		v, err := s.Get("copy")
		require.NoError(t, err)
		v[0] = 'z'
		again, err := s.Get("copy")
		require.NoError(t, err)
		assert.Equal(t, "abc", string(again))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Put("gone", []byte("x")))
		require.NoError(t, s.Delete("gone"))
		_, err := s.Get("gone")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.NoError(t, s.Delete("gone"))
	})
}
