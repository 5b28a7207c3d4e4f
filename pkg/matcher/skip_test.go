package matcher

import (
	"testing"

	"github.com/praetorian-inc/aobscan/pkg/pattern"
	"github.com/stretchr/testify/assert"
)

func TestNewSkipTable_Concrete(t *testing.T) {
	// L = 4: positions 0..2 contribute L-1-i, the last position is excluded.
	table := NewSkipTable(pattern.MustCompile("AA BB CC DD", pattern.IDAStyle{}))

	assert.Equal(t, 4, table.Default())
	assert.Equal(t, 3, table.Shift(0xAA))
	assert.Equal(t, 2, table.Shift(0xBB))
	assert.Equal(t, 1, table.Shift(0xCC))
	assert.Equal(t, 4, table.Shift(0xDD))
	assert.Equal(t, 4, table.Shift(0x00))
}

func TestNewSkipTable_RepeatedByteRightmostWins(t *testing.T) {
	table := NewSkipTable(pattern.MustCompile("AA BB AA CC", pattern.IDAStyle{}))

	assert.Equal(t, 1, table.Shift(0xAA))
	assert.Equal(t, 2, table.Shift(0xBB))
}

func TestNewSkipTable_TrailingWildcard(t *testing.T) {
	table := NewSkipTable(pattern.MustCompile("48 8B ? ?", pattern.IDAStyle{}))

	assert.Equal(t, 1, table.Default())
	for b := 0; b < 256; b++ {
		assert.Equal(t, 1, table.Shift(byte(b)))
	}
}

func TestNewSkipTable_AllWildcards(t *testing.T) {
	table := NewSkipTable(pattern.MustCompile("? ? ?", pattern.IDAStyle{}))

	for b := 0; b < 256; b++ {
		assert.Equal(t, 1, table.Shift(byte(b)))
	}
}

func TestNewSkipTable_InnerWildcardCapsShift(t *testing.T) {
	// Rightmost wildcard at position 1 of 5: no shift may exceed 5-1-1 = 3.
	table := NewSkipTable(pattern.MustCompile("AA ? BB CC DD", pattern.IDAStyle{}))

	assert.Equal(t, 3, table.Default())
	assert.Equal(t, 3, table.Shift(0xAA))
	assert.Equal(t, 2, table.Shift(0xBB))
	assert.Equal(t, 1, table.Shift(0xCC))
}

func TestNewSkipTable_SingleByte(t *testing.T) {
	table := NewSkipTable(pattern.MustCompile("90", pattern.IDAStyle{}))

	assert.Equal(t, 1, table.Default())
	assert.Equal(t, 1, table.Shift(0x90))
}

func TestNewSkipTable_LastOnlyByteTakesDefault(t *testing.T) {
	// DD appears only at the last position, so it shifts like an unseen byte.
	table := NewSkipTable(pattern.MustCompile("AA BB CC DD", pattern.IDAStyle{}))
	assert.Equal(t, table.Default(), table.Shift(0xDD))

	// A repeat earlier in the pattern still sets the shift.
	table = NewSkipTable(pattern.MustCompile("DD BB CC DD", pattern.IDAStyle{}))
	assert.Equal(t, 3, table.Shift(0xDD))
}
