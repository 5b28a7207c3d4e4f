package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractContext(t *testing.T) {
	content := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	tests := []struct {
		name       string
		start, end int
		n          int
		wantBefore []byte
		wantAfter  []byte
	}{
		{"middle", 4, 6, 2, []byte{2, 3}, []byte{6, 7}},
		{"start of buffer", 0, 2, 3, nil, []byte{2, 3, 4}},
		{"end of buffer", 8, 10, 3, []byte{5, 6, 7}, nil},
		{"fewer bytes than requested", 1, 9, 4, []byte{0}, []byte{9}},
		{"zero context", 4, 6, 0, nil, nil},
		{"start after end", 6, 4, 2, nil, nil},
		{"end out of range", 4, 11, 2, nil, nil},
		{"negative start", -1, 4, 2, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, after := ExtractContext(content, tt.start, tt.end, tt.n)
			assert.Equal(t, tt.wantBefore, before)
			assert.Equal(t, tt.wantAfter, after)
		})
	}
}

func TestExtractContext_ReturnsIndependentCopies(t *testing.T) {
	content := []byte{0xAA, 0xBB, 0x48, 0x8B, 0xCC, 0xDD}

	before, after := ExtractContext(content, 2, 4, 2)
	for i := range content {
		content[i] = 0
	}

	assert.Equal(t, []byte{0xAA, 0xBB}, before)
	assert.Equal(t, []byte{0xCC, 0xDD}, after)
}
