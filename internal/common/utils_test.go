package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasAny(t *testing.T) {
	assert.True(t, HasAny("light rain shower", "snow", "rain"))
	assert.False(t, HasAny("clear sky", "snow", "rain"))
	assert.False(t, HasAny("clear sky"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "Flood…", Truncate("Flood warning", 6))
	assert.Equal(t, "…", Truncate("µg/m³", 1))
	assert.Equal(t, "abc", Truncate("abc", 0))
}
