package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizePostgresText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain utf8", input: "hello world", want: "hello world"},
		{name: "contains null byte", input: "hel\x00lo", want: "hello"},
		{name: "contains invalid utf8", input: string([]byte{'a', 0xff, 'b'}), want: "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizePostgresText(tt.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 30, "..."))
	assert.Equal(t, "abc...", Truncate("abcdef", 3, "..."))
	assert.Equal(t, "żół", Truncate("żółw", 3, ""))
}
