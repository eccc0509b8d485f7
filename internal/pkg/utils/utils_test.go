package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0", FormatNumber(0))
	assert.Equal(t, "500", FormatNumber(500))
	assert.Equal(t, "-500", FormatNumber(-500))
	assert.Equal(t, "3,050", FormatNumber(3050))
	assert.Equal(t, "1,234,567", FormatNumber(1234567))
	assert.Equal(t, "-1,234", FormatNumber(-1234))
}

func TestFormatKES(t *testing.T) {
	assert.Equal(t, "2,000.00", FormatKES(decimal.NewFromInt(2000)))
	assert.Equal(t, "1.00", FormatKES(decimal.RequireFromString("1")))
	assert.Equal(t, "1,050.50", FormatKES(decimal.RequireFromString("1050.5")))
	assert.Equal(t, "0.00", FormatKES(decimal.Zero))
}
