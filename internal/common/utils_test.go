package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasAny(t *testing.T) {
	assert.True(t, HasAny("Light Rain", "rain", "drizzle"))
	assert.True(t, HasAny("DRIZZLE", "rain", "drizzle"))
	assert.False(t, HasAny("clear sky", "rain", "drizzle"))
	assert.False(t, HasAny("anything"))
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "Lviv", FirstNonEmpty("", "  ", " Lviv ", "Kyiv"))
	assert.Empty(t, FirstNonEmpty("", " "))
}
