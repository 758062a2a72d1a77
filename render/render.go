// Package render draws a bookshelf collection for the terminal.
package render

import (
	"fmt"
	"io"
	"strings"

	"git.sr.ht/~jackmordaunt/bookshelf"
	"github.com/charmbracelet/lipgloss"
)

// Palette.
var (
	Accent = lipgloss.Color("#8BC34A")
	Muted  = lipgloss.Color("#6B7280")
	Info   = lipgloss.Color("#2196F3")
)

// Theme holds the styles used for each part of the output.
type Theme struct {
	Heading lipgloss.Style
	Count   lipgloss.Style
	Title   lipgloss.Style
	Detail  lipgloss.Style
	ID      lipgloss.Style
	Empty   lipgloss.Style
}

// NewTheme builds styles bound to r.
func NewTheme(r *lipgloss.Renderer) Theme {
	return Theme{
		Heading: r.NewStyle().Bold(true).Foreground(Accent),
		Count:   r.NewStyle().Foreground(Muted),
		Title:   r.NewStyle().Bold(true),
		Detail:  r.NewStyle().Foreground(Info),
		ID:      r.NewStyle().Foreground(Muted),
		Empty:   r.NewStyle().Italic(true).Foreground(Muted),
	}
}

// PlainTheme applies no styling at all.
func PlainTheme() Theme {
	plain := lipgloss.NewStyle()
	return Theme{Heading: plain, Count: plain, Title: plain, Detail: plain, ID: plain, Empty: plain}
}

// Renderer writes collections to Out. The output is a pure function of the
// collection it is given.
type Renderer struct {
	Out   io.Writer
	Theme Theme
	// Err holds the last write error seen by Handle.
	Err error
}

// New renderer writing to w, styled when color is set.
func New(w io.Writer, color bool) *Renderer {
	theme := PlainTheme()
	if color {
		theme = NewTheme(lipgloss.NewRenderer(w))
	}
	return &Renderer{Out: w, Theme: theme}
}

// Handle renders the collection carried by a StateMutated event.
func (r *Renderer) Handle(e bookshelf.Event) {
	if e.Signal != bookshelf.StateMutated {
		return
	}
	r.Err = r.Render(e.Collection)
}

// Render both lists with their counts.
func (r *Renderer) Render(c bookshelf.Collection) error {
	_, err := io.WriteString(r.Out, r.String(c))
	return err
}

// String renders c without writing it.
func (r *Renderer) String(c bookshelf.Collection) string {
	var sb strings.Builder
	r.section(&sb, "Unread", c.Unread)
	sb.WriteString("\n")
	r.section(&sb, "Read", c.Read)
	return sb.String()
}

func (r *Renderer) section(sb *strings.Builder, name string, books []bookshelf.Book) {
	sb.WriteString(r.Theme.Heading.Render(name))
	sb.WriteString(" ")
	sb.WriteString(r.Theme.Count.Render(Count(len(books))))
	sb.WriteString("\n")
	if len(books) == 0 {
		sb.WriteString("  ")
		sb.WriteString(r.Theme.Empty.Render("no books"))
		sb.WriteString("\n")
		return
	}
	for _, b := range books {
		fmt.Fprintf(sb, "  %s %s %s\n",
			r.Theme.ID.Render("#"+b.ID.String()),
			r.Theme.Title.Render(b.Title),
			r.Theme.Detail.Render(fmt.Sprintf("by %s (%d)", b.Author, b.Year)),
		)
	}
}

// Count formats a per-list book count.
func Count(n int) string {
	if n == 1 {
		return "(1 Book)"
	}
	return fmt.Sprintf("(%d Books)", n)
}
