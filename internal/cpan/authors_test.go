package cpan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mailrcFixture = `alias AASSAD "Arnaud 'Arhuman' Assad <arhuman@example.com>"
alias ABELTJE "Abe Timmerman <abeltje@example.net>"
alias NOMAIL "Ghost Author"
garbage line that is not an alias
`

func TestParseMailrc(t *testing.T) {
	t.Parallel()

	authors, err := parseMailrc(strings.NewReader(mailrcFixture))
	require.NoError(t, err)
	require.Len(t, authors, 3)

	abe := authors["ABELTJE"]
	require.NotNil(t, abe)
	assert.Equal(t, "ABELTJE", abe.ID)
	assert.Equal(t, "Abe Timmerman", abe.FullName)
	assert.Equal(t, "abeltje@example.net", abe.Email)

	// Entries without an address part keep an empty email.
	ghost := authors["NOMAIL"]
	require.NotNil(t, ghost)
	assert.Equal(t, "Ghost Author", ghost.FullName)
	assert.Empty(t, ghost.Email)
}

func TestSplitAddress(t *testing.T) {
	t.Parallel()

	name, email := splitAddress("Abe Timmerman <abeltje@example.net>")
	assert.Equal(t, "Abe Timmerman", name)
	assert.Equal(t, "abeltje@example.net", email)

	name, email = splitAddress("Just A Name")
	assert.Equal(t, "Just A Name", name)
	assert.Empty(t, email)
}
