package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnippet_Hex(t *testing.T) {
	tests := []struct {
		name    string
		snippet Snippet
		want    string
	}{
		{"full", Snippet{Before: []byte{0x55, 0x48}, Matching: []byte{0x89, 0xE5}, After: []byte{0xC3}}, "5548 [89e5] c3"},
		{"no context", Snippet{Matching: []byte{0x90}}, "[90]"},
		{"before only", Snippet{Before: []byte{0x00}, Matching: []byte{0x90}}, "00 [90]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.snippet.Hex())
		})
	}
}
