package reply

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPick(t *testing.T) {
	variants := []string{"a", "b", "c"}

	assert.Equal(t, "a", Pick(variants, 0))
	assert.Equal(t, "b", Pick(variants, 1))
	assert.Equal(t, "c", Pick(variants, 2))
	assert.Equal(t, "a", Pick(variants, 3))

	// Deterministic for the same seed.
	assert.Equal(t, Pick(variants, 41), Pick(variants, 41))
}

func TestPick_NegativeSeed(t *testing.T) {
	variants := []string{"a", "b", "c"}
	assert.Equal(t, "c", Pick(variants, -2))
}

func TestPick_Empty(t *testing.T) {
	assert.Equal(t, "", Pick(nil, 7))
	assert.Equal(t, "", Pick([]string{}, 7))
}
