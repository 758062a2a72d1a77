package form

import (
	"testing"

	"git.sr.ht/~jackmordaunt/bookshelf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	d, err := Parse("  Dune ", "\tHerbert\n", " 1965 ", false)
	require.NoError(t, err)
	assert.Equal(t, bookshelf.Data{Title: "Dune", Author: "Herbert", Year: 1965}, d)
}

func TestParse_Year(t *testing.T) {
	for in, want := range map[string]int{
		"1965":   1965,
		"1965ad": 1965,
		"-500":   -500,
		"+42":    42,
		"007":    7,
	} {
		d, err := Parse("t", "a", in, true)
		require.NoError(t, err, in)
		assert.Equal(t, want, d.Year, in)
		assert.True(t, d.IsComplete)
	}
	for _, in := range []string{"", "  ", "abc", "-", "ad1965"} {
		_, err := Parse("t", "a", in, false)
		assert.ErrorIs(t, err, ErrInvalidYear, in)
	}
}

func TestParse_Required(t *testing.T) {
	_, err := Parse("  ", "a", "1", false)
	assert.ErrorIs(t, err, ErrTitleRequired)

	_, err = Parse("t", "", "1", false)
	assert.ErrorIs(t, err, ErrAuthorRequired)
}

func TestMerge(t *testing.T) {
	b := bookshelf.Book{ID: 1, Title: "Dune", Author: "Herbert", Year: 1965}
	yes := true

	d, err := Merge(b, "Dune Messiah", "", "1969", &yes)
	require.NoError(t, err)
	assert.Equal(t, bookshelf.Data{Title: "Dune Messiah", Author: "Herbert", Year: 1969, IsComplete: true}, d)

	d, err = Merge(b, "", " ", "", nil)
	require.NoError(t, err)
	assert.Equal(t, bookshelf.Data{Title: "Dune", Author: "Herbert", Year: 1965}, d)

	_, err = Merge(b, "", "", "soon", nil)
	assert.ErrorIs(t, err, ErrInvalidYear)
}
