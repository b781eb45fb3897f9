package random

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntnStaysInRange(t *testing.T) {
	r := New()
	for i := 0; i < 500; i++ {
		v := r.Intn(25)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 25)
	}
}

func TestIntnNonPositive(t *testing.T) {
	r := New()
	assert.Equal(t, 0, r.Intn(0))
	assert.Equal(t, 0, r.Intn(-3))
}

func TestStringUsesAlphabet(t *testing.T) {
	r := New()
	s := r.String(32, "ab")
	assert.Len(t, s, 32)
	assert.Empty(t, strings.Trim(s, "ab"))
	assert.Equal(t, "", r.String(0, "ab"))
	assert.Equal(t, "", r.String(4, ""))
}
