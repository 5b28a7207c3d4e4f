package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPattern_MatchesAt(t *testing.T) {
	p := MustCompile("48 8B ? ?", IDAStyle{})
	data := []byte{0x00, 0x48, 0x8B, 0x11, 0x22, 0x48, 0x8B}

	assert.False(t, p.MatchesAt(data, 0))
	assert.True(t, p.MatchesAt(data, 1))
	// window runs off the end
	assert.False(t, p.MatchesAt(data, 5))
	assert.False(t, p.MatchesAt(data, -1))
}

func TestPattern_WildcardBytes(t *testing.T) {
	p := MustCompile("E8 ? ? ? ? C3", IDAStyle{})
	data := []byte{0xE8, 0x10, 0x20, 0x30, 0x40, 0xC3}

	require.True(t, p.MatchesAt(data, 0))
	assert.Equal(t, []byte{0x10, 0x20, 0x30, 0x40}, p.WildcardBytes(data, 0))
}

func TestPattern_ConcreteCount(t *testing.T) {
	assert.Equal(t, 2, MustCompile("48 ? 8B ?", IDAStyle{}).ConcreteCount())
	assert.Equal(t, 0, MustCompile("? ?", IDAStyle{}).ConcreteCount())
}

func TestPattern_LongestRun(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		run    []byte
		offset int
	}{
		{"all concrete", "48 8B 05", []byte{0x48, 0x8B, 0x05}, 0},
		{"middle run", "48 ? 8B 05 C3 ? 90", []byte{0x8B, 0x05, 0xC3}, 2},
		{"tie goes left", "AA BB ? CC DD", []byte{0xAA, 0xBB}, 0},
		{"trailing run", "? ? 01 02", []byte{0x01, 0x02}, 2},
		{"all wildcards", "? ? ?", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, off := MustCompile(tt.text, IDAStyle{}).LongestRun()
			assert.Equal(t, tt.run, run)
			assert.Equal(t, tt.offset, off)
		})
	}
}

func TestPattern_ElementsIsCopy(t *testing.T) {
	p := MustCompile("48 8B", IDAStyle{})
	elems := p.Elements()
	elems[0] = Wildcard

	assert.Equal(t, Byte(0x48), p.At(0))
}

func TestNew_CopiesInput(t *testing.T) {
	elems := []Element{Byte(1), Byte(2)}
	p, err := New(elems...)
	require.NoError(t, err)

	elems[0] = Wildcard
	assert.Equal(t, "01 02", p.String())
}

func TestPattern_ZeroValue(t *testing.T) {
	var p Pattern
	assert.True(t, p.IsEmpty())
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, "", p.String())
}
