// Package app wires a Shelf to persistent storage and drives the edit
// workflow.
//
// App has three collaborators: the Shelf owns state, the Adapter persists it
// and the Bus tells the view when to redraw. Every mutation follows the same
// order: mutate, reconcile, publish StateMutated, save.
package app

import (
	"errors"

	"git.sr.ht/~jackmordaunt/bookshelf"
	"git.sr.ht/~jackmordaunt/bookshelf/persist"
	"github.com/rs/zerolog"
)

// Persister loads and saves whole collections.
type Persister interface {
	Load() (bookshelf.Collection, error)
	Save(bookshelf.Collection) error
	Clear() error
}

var _ Persister = (*persist.Adapter)(nil)

// Notifier shows a message the user must acknowledge.
type Notifier interface {
	Alert(msg string)
}

// NotifierFunc adapts a func to Notifier.
type NotifierFunc func(msg string)

func (f NotifierFunc) Alert(msg string) { f(msg) }

// UnavailableMessage is shown the first time storage cannot be used.
const UnavailableMessage = "Storage is not available: changes will not be saved."

// App is the high level object that owns the edit state and funnels every
// user action through the Shelf.
// App is not safe for concurrent use.
type App struct {
	Shelf   *bookshelf.Shelf
	Storage Persister
	Bus     *bookshelf.Bus
	Notify  Notifier
	Log     zerolog.Logger

	// editing is the ID of the book being edited; zero when idle.
	editing   bookshelf.ID
	isEditing bool
	alerted   bool
	stop      func()
}

// New wires shelf, storage and bus together. The shelf must publish on bus.
func New(shelf *bookshelf.Shelf, storage Persister, bus *bookshelf.Bus, opts ...Option) *App {
	a := &App{
		Shelf:   shelf,
		Storage: storage,
		Bus:     bus,
		Log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.stop = bus.Subscribe(bookshelf.StorageSynced, func(bookshelf.Event) {
		a.Load()
	})
	return a
}

// Option configures an App.
type Option func(*App)

// WithNotifier sets the user-facing notifier.
func WithNotifier(n Notifier) Option {
	return func(a *App) { a.Notify = n }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *App) { a.Log = l }
}

// Start requests the initial load from storage.
func (a *App) Start() {
	a.Reload()
}

// Close detaches the app from the bus.
func (a *App) Close() {
	if a.stop != nil {
		a.stop()
		a.stop = nil
	}
}

// Load replaces the shelf with what storage holds. Missing or corrupt data
// yields an empty shelf.
func (a *App) Load() {
	c, err := a.Storage.Load()
	switch {
	case err == nil, errors.Is(err, persist.ErrNotFound):
	case errors.Is(err, persist.ErrUnavailable):
		a.unavailable()
	default:
		// Storage has already reported the failure.
		a.Log.Debug().Err(err).Msg("loading bookshelf, starting empty")
	}
	a.Shelf.Replace(c)
}

// Clear empties the shelf and removes the saved copy. Any edit in progress
// is abandoned.
func (a *App) Clear() {
	a.CancelEdit()
	a.Shelf.Replace(bookshelf.Collection{})
	err := a.Storage.Clear()
	switch {
	case err == nil:
	case errors.Is(err, persist.ErrUnavailable):
		a.unavailable()
	default:
		a.Log.Error().Err(err).Msg("clearing bookshelf")
	}
}

// Add a book and save.
func (a *App) Add(d bookshelf.Data) bookshelf.Book {
	b := a.Shelf.Add(d)
	a.save()
	return b
}

// Delete a book and save. Unknown IDs are ignored.
func (a *App) Delete(id bookshelf.ID) bool {
	if !a.Shelf.Delete(id) {
		a.Log.Debug().Stringer("id", id).Msg("delete: no such book")
		return false
	}
	a.save()
	return true
}

// Toggle a book between read and unread and save.
func (a *App) Toggle(id bookshelf.ID) bool {
	if !a.Shelf.Toggle(id) {
		a.Log.Debug().Stringer("id", id).Msg("toggle: no such book")
		return false
	}
	a.save()
	return true
}

// BeginEdit enters edit mode for the book. A request for an unknown book is
// ignored; a request while already editing switches to the new book.
func (a *App) BeginEdit(id bookshelf.ID) (bookshelf.Book, bool) {
	b, ok := a.Shelf.Find(id)
	if !ok {
		return b, false
	}
	a.editing, a.isEditing = id, true
	return b, true
}

// CancelEdit returns to idle without mutating anything.
func (a *App) CancelEdit() {
	a.editing, a.isEditing = 0, false
}

// Editing reports the book currently being edited.
func (a *App) Editing() (bookshelf.ID, bool) {
	return a.editing, a.isEditing
}

// Submit the form: edits the book in edit mode, otherwise adds a new one.
// Submitting always returns to idle. Reports whether the shelf changed.
func (a *App) Submit(d bookshelf.Data) bool {
	if !a.isEditing {
		a.Add(d)
		return true
	}
	id := a.editing
	a.CancelEdit()
	if !a.Shelf.Edit(id, d) {
		return false
	}
	a.save()
	return true
}

// Search returns matching books without touching state.
func (a *App) Search(term string) bookshelf.Collection {
	return a.Shelf.Search(term)
}

// ResetSearch reloads the full shelf from storage.
func (a *App) ResetSearch() {
	a.Reload()
}

// Reload requests a reload from storage, for example after storage was
// changed by another process.
func (a *App) Reload() {
	a.Bus.Publish(bookshelf.Event{Signal: bookshelf.StorageSynced})
}

// save persists the shelf. Failures are logged and never re-raised; memory
// stays authoritative.
func (a *App) save() {
	err := a.Storage.Save(a.Shelf.Collection())
	switch {
	case err == nil:
	case errors.Is(err, persist.ErrUnavailable):
		a.unavailable()
	default:
		a.Log.Error().Err(err).Msg("saving bookshelf")
	}
}

// unavailable alerts the user the first time storage cannot be used.
func (a *App) unavailable() {
	if a.alerted {
		return
	}
	a.alerted = true
	a.Log.Warn().Msg("storage unavailable, continuing in memory")
	if a.Notify != nil {
		a.Notify.Alert(UnavailableMessage)
	}
}
