// Package form turns raw user input into bookshelf.Data.
package form

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"git.sr.ht/~jackmordaunt/bookshelf"
)

var (
	ErrTitleRequired  = errors.New("title is required")
	ErrAuthorRequired = errors.New("author is required")
	ErrInvalidYear    = errors.New("year must be a number")
)

// Parse trims every field, requires a title and an author, and reads the
// leading integer of year ("1965", " 1965 ", "1965ad" all give 1965).
func Parse(title, author, year string, complete bool) (bookshelf.Data, error) {
	d := bookshelf.Data{
		Title:      strings.TrimSpace(title),
		Author:     strings.TrimSpace(author),
		IsComplete: complete,
	}
	if d.Title == "" {
		return d, ErrTitleRequired
	}
	if d.Author == "" {
		return d, ErrAuthorRequired
	}
	y, err := leadingInt(strings.TrimSpace(year))
	if err != nil {
		return d, fmt.Errorf("%w: %q", ErrInvalidYear, year)
	}
	d.Year = y
	return d, nil
}

// Merge overlays the non-empty fields onto an existing book, so an edit may
// change only what the user supplied. complete is applied when non-nil.
func Merge(b bookshelf.Book, title, author, year string, complete *bool) (bookshelf.Data, error) {
	d := bookshelf.Data{
		Title:      b.Title,
		Author:     b.Author,
		Year:       b.Year,
		IsComplete: b.IsComplete,
	}
	if t := strings.TrimSpace(title); t != "" {
		d.Title = t
	}
	if a := strings.TrimSpace(author); a != "" {
		d.Author = a
	}
	if y := strings.TrimSpace(year); y != "" {
		n, err := leadingInt(y)
		if err != nil {
			return d, fmt.Errorf("%w: %q", ErrInvalidYear, year)
		}
		d.Year = n
	}
	if complete != nil {
		d.IsComplete = *complete
	}
	return d, nil
}

func leadingInt(s string) (int, error) {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, strconv.ErrSyntax
	}
	return strconv.Atoi(s[:end])
}
