package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizerDestination(t *testing.T) {
	n := NewNormalizer("es")

	cases := map[string]string{
		"612345678":          "34612345678",
		"612 34 56 78":       "34612345678",
		"+34 612-345-678":    "34612345678",
		"0034612345678":      "34612345678",
		"+44 20 7946 0958":   "442079460958",
		"120363025@g.us":     "120363025@g.us",
		" 34600111222@c.us ": "34600111222@c.us",
	}
	for input, expected := range cases {
		got, err := n.Destination(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, got, input)
	}
}

func TestNormalizerRejectsGarbage(t *testing.T) {
	n := NewNormalizer("")
	for _, input := range []string{"", "   ", "abc", "12"} {
		_, err := n.Destination(input)
		assert.ErrorIs(t, err, ErrInvalidNumber, input)
	}
}
