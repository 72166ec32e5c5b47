package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "si claro", normalize("  Sí CLARO "))
	assert.Equal(t, "proximo", normalize("próximo"))
	assert.Equal(t, "pinguino", normalize("PINGÜINO"))
}

func TestParseAmount(t *testing.T) {
	testCases := []struct {
		in       string
		expected int64
		ok       bool
	}{
		{"25000", 25000, true},
		{"gasté 25.000 en almuerzo", 25000, true},
		{"$1.234.567", 1234567, true},
		{"1,500", 1500, true},
		{"el día 5", 5, true},
		{"sin números", 0, false},
		{"", 0, false},
	}

	for _, tc := range testCases {
		got, ok := parseAmount(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.expected, got, tc.in)
	}
}

func TestParseNumbers(t *testing.T) {
	assert.Equal(t, []int64{850000, 5}, parseNumbers("850.000 el día 5"))
	assert.Equal(t, []int64{5}, parseNumbers("el 5"))
	assert.Empty(t, parseNumbers("nada"))

	// At most two numbers are considered.
	assert.Len(t, parseNumbers("1 2 3"), 2)
}

func TestYesNoVocabulary(t *testing.T) {
	for _, yes := range []string{"si", "Sí", "dale", "ok", "de una", "claro"} {
		assert.True(t, isAffirmative(yes), yes)
		assert.False(t, isNegative(yes), yes)
	}

	for _, no := range []string{"no", "Nop", "no gracias", "nel"} {
		assert.True(t, isNegative(no), no)
		assert.False(t, isAffirmative(no), no)
	}

	// Free text is neither.
	assert.False(t, isAffirmative("si quiero saber mi resumen"))
	assert.False(t, isNegative("no entiendo nada"))
}

func TestIsNumericMessage(t *testing.T) {
	assert.True(t, isNumericMessage("25000"))
	assert.True(t, isNumericMessage("$25.000"))
	assert.True(t, isNumericMessage(" 1,500 "))
	assert.False(t, isNumericMessage("25000 pesos"))
	assert.False(t, isNumericMessage("almuerzo"))
	assert.False(t, isNumericMessage("$ ."))
}

func TestCollapseSpaces(t *testing.T) {
	assert.Equal(t, "Juan Pablo", collapseSpaces("  Juan   Pablo "))
	assert.Equal(t, "", collapseSpaces("   "))
}
