package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	a, b := New(), New()
	assert.NotEqual(t, a, b)
	assert.True(t, Valid(a))
}

func TestStable(t *testing.T) {
	assert.Equal(t, Stable("category", "Food"), Stable("category", " food "))
	assert.NotEqual(t, Stable("category", "Food"), Stable("account", "Food"))
	assert.True(t, Valid(Stable("category", "Food")))
}

func TestValid(t *testing.T) {
	assert.False(t, Valid(""))
	assert.False(t, Valid("2025-01-001"))
}

func TestShort(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"6ba7b810-9dad-11d1-80b4-00c04fd430c8", "6ba7b810"},
		{"plain", "plain"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Short(tt.in), "Short(%q)", tt.in)
	}
}
