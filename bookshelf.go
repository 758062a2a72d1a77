package bookshelf

import (
	"strconv"
	"strings"
	"time"
)

// Shelf owns the canonical collection of books and drives every mutation.
// Shelf is not safe for concurrent use.
type Shelf struct {
	// Bus receives a StateMutated event after each mutation.
	// nil disables notification.
	Bus *Bus
	// Clock used to mint IDs. Defaults to time.Now.
	Clock func() time.Time

	books Collection
	last  ID
}

// New allocates a shelf that notifies the given bus.
func New(bus *Bus) *Shelf {
	return &Shelf{Bus: bus}
}

// Add a book, assigning it a fresh ID.
func (s *Shelf) Add(d Data) Book {
	b := Book{
		ID:         s.nextID(),
		Title:      d.Title,
		Author:     d.Author,
		Year:       d.Year,
		IsComplete: d.IsComplete,
	}
	if b.IsComplete {
		s.books.Read = append(s.books.Read, b)
	} else {
		s.books.Unread = append(s.books.Unread, b)
	}
	s.mutated()
	return b
}

// Edit overwrites the mutable fields of the book with the given ID.
// Reports whether the book exists.
func (s *Shelf) Edit(id ID, d Data) bool {
	b := s.lookup(id)
	if b == nil {
		return false
	}
	b.Title = d.Title
	b.Author = d.Author
	b.Year = d.Year
	b.IsComplete = d.IsComplete
	s.Reconcile()
	s.mutated()
	return true
}

// Delete the book with the given ID.
// Reports whether a book was removed.
func (s *Shelf) Delete(id ID) bool {
	for _, list := range []*[]Book{&s.books.Unread, &s.books.Read} {
		for ii := range *list {
			if (*list)[ii].ID == id {
				*list = append((*list)[:ii], (*list)[ii+1:]...)
				s.mutated()
				return true
			}
		}
	}
	return false
}

// Toggle flips the completion status of a book.
// Reports whether the book exists.
func (s *Shelf) Toggle(id ID) bool {
	b := s.lookup(id)
	if b == nil {
		return false
	}
	b.IsComplete = !b.IsComplete
	s.Reconcile()
	s.mutated()
	return true
}

// Find a book by ID, searching unread books first.
func (s *Shelf) Find(id ID) (Book, bool) {
	if b := s.lookup(id); b != nil {
		return *b, true
	}
	return Book{}, false
}

// Reconcile re-partitions every book by its completion status.
// Relative order within each list is kept.
func (s *Shelf) Reconcile() {
	s.books = s.books.partition()
}

// Search returns the books whose title or author contains term, ignoring case.
// A blank term returns everything. The shelf is not modified.
func (s *Shelf) Search(term string) Collection {
	return s.books.Filter(term)
}

// Collection returns a copy of the current state.
func (s *Shelf) Collection() Collection {
	return s.books.Clone()
}

// Counts returns the number of books in each list.
func (s *Shelf) Counts() Counts {
	return s.books.Counts()
}

// Replace the shelf contents, typically with a freshly loaded collection.
func (s *Shelf) Replace(c Collection) {
	s.books = c.Clone().partition()
	s.mutated()
}

func (s *Shelf) lookup(id ID) *Book {
	for _, list := range [][]Book{s.books.Unread, s.books.Read} {
		for ii := range list {
			if list[ii].ID == id {
				return &list[ii]
			}
		}
	}
	return nil
}

func (s *Shelf) mutated() {
	if s.Bus == nil {
		return
	}
	s.Bus.Publish(Event{
		Signal:     StateMutated,
		Collection: s.books.Clone(),
		Counts:     s.books.Counts(),
	})
}

// nextID mints a millisecond timestamp, bumped past any ID already in use.
func (s *Shelf) nextID() ID {
	clock := s.Clock
	if clock == nil {
		clock = time.Now
	}
	id := ID(clock().UnixMilli())
	if s.last >= id {
		id = s.last + 1
	}
	for _, list := range [][]Book{s.books.Unread, s.books.Read} {
		for _, b := range list {
			if b.ID >= id {
				id = b.ID + 1
			}
		}
	}
	s.last = id
	return id
}

// ID uniquely identifies a book.
type ID int64

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseID parses the decimal form of an ID.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return ID(n), err
}

// Book on the shelf.
type Book struct {
	ID         ID     `json:"id"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	Year       int    `json:"year"`
	IsComplete bool   `json:"isComplete"`
}

// Data holds the mutable fields of a Book.
// Input adapters are expected to trim and validate before handing it over.
type Data struct {
	Title      string
	Author     string
	Year       int
	IsComplete bool
}

// matches reports whether title or author contains the lower-cased term.
func (b Book) matches(term string) bool {
	return strings.Contains(strings.ToLower(b.Title), term) ||
		strings.Contains(strings.ToLower(b.Author), term)
}

// Collection of books partitioned by completion status.
type Collection struct {
	Unread []Book `json:"unread"`
	Read   []Book `json:"read"`
}

// Counts of books per list.
type Counts struct {
	Unread int
	Read   int
}

// Counts returns the length of each list.
func (c Collection) Counts() Counts {
	return Counts{Unread: len(c.Unread), Read: len(c.Read)}
}

// Len is the total number of books.
func (c Collection) Len() int {
	return len(c.Unread) + len(c.Read)
}

// Clone deep copies the collection. Lists are never nil.
func (c Collection) Clone() Collection {
	return Collection{
		Unread: append(make([]Book, 0, len(c.Unread)), c.Unread...),
		Read:   append(make([]Book, 0, len(c.Read)), c.Read...),
	}
}

// Filter returns the books matching term in both lists.
func (c Collection) Filter(term string) Collection {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return c.Clone()
	}
	filter := func(books []Book) []Book {
		out := []Book{}
		for _, b := range books {
			if b.matches(term) {
				out = append(out, b)
			}
		}
		return out
	}
	return Collection{
		Unread: filter(c.Unread),
		Read:   filter(c.Read),
	}
}

// Consistent reports whether every book sits in the list matching its status.
func (c Collection) Consistent() bool {
	for _, b := range c.Unread {
		if b.IsComplete {
			return false
		}
	}
	for _, b := range c.Read {
		if !b.IsComplete {
			return false
		}
	}
	return true
}

func (c Collection) partition() Collection {
	out := Collection{
		Unread: make([]Book, 0, len(c.Unread)),
		Read:   make([]Book, 0, len(c.Read)),
	}
	for _, list := range [][]Book{c.Unread, c.Read} {
		for _, b := range list {
			if b.IsComplete {
				out.Read = append(out.Read, b)
			} else {
				out.Unread = append(out.Unread, b)
			}
		}
	}
	return out
}
