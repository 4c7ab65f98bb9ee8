package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewID(t *testing.T) {
	a := NewID("mem")
	b := NewID("mem")

	assert.True(t, strings.HasPrefix(a, "mem_"))
	assert.Len(t, a, len("mem_")+21)
	assert.NotEqual(t, a, b)
	assert.Len(t, NewID(""), 21)
}
