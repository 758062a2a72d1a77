// Package persist moves a bookshelf Collection in and out of a storage slot.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"

	"git.sr.ht/~jackmordaunt/bookshelf"
	"git.sr.ht/~jackmordaunt/bookshelf/storage"
	"github.com/rs/zerolog"
)

// DefaultKey names the slot holding the bookshelf.
const DefaultKey = "LOCAL_BOOKSHELF"

var (
	// ErrNotFound means nothing has been saved yet.
	ErrNotFound = errors.New("no saved bookshelf")
	// ErrCorrupt means the saved bytes are not a valid bookshelf.
	ErrCorrupt = errors.New("saved bookshelf is corrupt")
	// ErrUnavailable means the storage medium cannot be used.
	ErrUnavailable = errors.New("bookshelf storage unavailable")
)

// Adapter serializes collections into a single slot key.
// Load and Save always leave the caller with a usable collection: errors
// describe what went wrong, they never mean "stop".
type Adapter struct {
	Slot storage.Slot
	Key  string
	Log  zerolog.Logger
}

// New adapter writing to key on slot. Empty key selects DefaultKey.
func New(slot storage.Slot, key string, log zerolog.Logger) *Adapter {
	if key == "" {
		key = DefaultKey
	}
	return &Adapter{Slot: slot, Key: key, Log: log}
}

func (a *Adapter) key() string {
	if a.Key == "" {
		return DefaultKey
	}
	return a.Key
}

// Load the saved collection.
// On any error an empty collection is returned alongside it.
func (a *Adapter) Load() (bookshelf.Collection, error) {
	empty := bookshelf.Collection{}.Clone()
	if a.Slot == nil {
		a.Log.Warn().Str("key", a.key()).Msg("no storage configured, starting empty")
		return empty, ErrUnavailable
	}
	raw, err := a.Slot.Get(a.key())
	switch {
	case errors.Is(err, storage.ErrNotFound):
		a.Log.Debug().Str("key", a.key()).Msg("nothing saved yet")
		return empty, ErrNotFound
	case errors.Is(err, storage.ErrUnavailable):
		a.Log.Warn().Err(err).Str("key", a.key()).Msg("storage unavailable, starting empty")
		return empty, fmt.Errorf("%w: %v", ErrUnavailable, err)
	case err != nil:
		// The bytes were never seen, so they cannot be called corrupt.
		a.Log.Error().Err(err).Str("key", a.key()).Msg("reading bookshelf")
		return empty, fmt.Errorf("%w: reading: %v", ErrUnavailable, err)
	}
	c, err := Decode(raw)
	if err != nil {
		a.Log.Error().Err(err).Str("key", a.key()).Int("bytes", len(raw)).Msg("discarding corrupt bookshelf")
		return empty, err
	}
	a.Log.Debug().
		Str("key", a.key()).
		Int("unread", len(c.Unread)).
		Int("read", len(c.Read)).
		Msg("loaded bookshelf")
	return c, nil
}

// Save the whole collection, replacing whatever was stored before.
func (a *Adapter) Save(c bookshelf.Collection) error {
	if a.Slot == nil {
		a.Log.Warn().Str("key", a.key()).Msg("no storage configured, not saving")
		return ErrUnavailable
	}
	raw, err := Encode(c)
	if err != nil {
		a.Log.Error().Err(err).Msg("encoding bookshelf")
		return err
	}
	if err := a.Slot.Put(a.key(), raw); err != nil {
		if errors.Is(err, storage.ErrUnavailable) {
			a.Log.Warn().Err(err).Str("key", a.key()).Msg("storage unavailable, not saving")
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		a.Log.Error().Err(err).Str("key", a.key()).Msg("saving bookshelf")
		return fmt.Errorf("writing %q: %w", a.key(), err)
	}
	a.Log.Debug().
		Str("key", a.key()).
		Int("unread", len(c.Unread)).
		Int("read", len(c.Read)).
		Msg("saved bookshelf")
	return nil
}

// Clear removes the saved collection. Clearing when nothing is saved is not
// an error.
func (a *Adapter) Clear() error {
	if a.Slot == nil {
		a.Log.Warn().Str("key", a.key()).Msg("no storage configured, not clearing")
		return ErrUnavailable
	}
	if err := a.Slot.Delete(a.key()); err != nil {
		if errors.Is(err, storage.ErrUnavailable) {
			a.Log.Warn().Err(err).Str("key", a.key()).Msg("storage unavailable, not clearing")
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		a.Log.Error().Err(err).Str("key", a.key()).Msg("clearing bookshelf")
		return fmt.Errorf("deleting %q: %w", a.key(), err)
	}
	a.Log.Debug().Str("key", a.key()).Msg("cleared bookshelf")
	return nil
}

// Encode a collection in its persisted layout. Nil lists are written as [].
func Encode(c bookshelf.Collection) ([]byte, error) {
	raw, err := json.Marshal(c.Clone())
	if err != nil {
		return nil, fmt.Errorf("encoding bookshelf: %w", err)
	}
	return raw, nil
}

// Decode persisted bytes, rejecting anything that is not a well formed
// collection. Books in the wrong list are accepted; callers reconcile.
func Decode(raw []byte) (bookshelf.Collection, error) {
	empty := bookshelf.Collection{}.Clone()
	// "null" decodes cleanly but is not an object.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return empty, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if fields == nil {
		return empty, fmt.Errorf("%w: not an object", ErrCorrupt)
	}
	// Pointers tell a null entry apart from a book.
	var lists struct {
		Unread []*bookshelf.Book `json:"unread"`
		Read   []*bookshelf.Book `json:"read"`
	}
	if err := json.Unmarshal(raw, &lists); err != nil {
		return empty, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	var (
		c    bookshelf.Collection
		seen = make(map[bookshelf.ID]bool, len(lists.Unread)+len(lists.Read))
	)
	for _, list := range []struct {
		name string
		src  []*bookshelf.Book
		dst  *[]bookshelf.Book
	}{
		{"unread", lists.Unread, &c.Unread},
		{"read", lists.Read, &c.Read},
	} {
		for ii, b := range list.src {
			switch {
			case b == nil:
				return empty, fmt.Errorf("%w: %s[%d] is null", ErrCorrupt, list.name, ii)
			case b.ID <= 0:
				return empty, fmt.Errorf("%w: %s[%d] has invalid id %v", ErrCorrupt, list.name, ii, b.ID)
			case seen[b.ID]:
				return empty, fmt.Errorf("%w: duplicate id %v", ErrCorrupt, b.ID)
			}
			seen[b.ID] = true
			*list.dst = append(*list.dst, *b)
		}
	}
	return c.Clone(), nil
}
