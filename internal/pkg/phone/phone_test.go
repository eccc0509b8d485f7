package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAcceptedForms(t *testing.T) {
	inputs := []string{
		"0712345678",
		"712345678",
		"254712345678",
		"+254712345678",
		"+254 712 345 678",
		"0712-345-678",
		" 0712345678 ",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			got, err := Normalize(in)
			require.NoError(t, err)
			assert.Equal(t, "254712345678", got)
		})
	}
}

func TestNormalizeRejects(t *testing.T) {
	inputs := []string{
		"",
		"12345",
		"0812345678",
		"254812345678",
		"07123456789",
		"071234567",
		"25471234567a",
		"2540712345678",
		"+1 712 345 678",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := Normalize(in)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLast4(t *testing.T) {
	assert.Equal(t, "5678", Last4("254712345678"))
	assert.Equal(t, "12", Last4("12"))
}
