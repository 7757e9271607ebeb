package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortIsStable(t *testing.T) {
	a := Of("https://example.com/post-1").Short()
	b := Of("https://example.com/post-2").Short()
	again := Of("https://example.com/post-1").Short()

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, again)
	assert.Len(t, a, 32)
}

func TestOfSeparatesParts(t *testing.T) {
	assert.NotEqual(t, Of("ab", "c").ComputeHash(), Of("a", "bc").ComputeHash())
	assert.Len(t, Of("x").ComputeHash(), 64)
}
