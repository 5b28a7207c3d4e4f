package matcher

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/praetorian-inc/aobscan/pkg/pattern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// randomBytes returns n bytes drawn from the values 0..alphabet-1, so short
// patterns over the same alphabet match often.
func randomBytes(n, alphabet int, seed uint64) []byte {
	r := rand.New(rand.NewPCG(seed, seed*31+1))
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(r.IntN(alphabet))
	}
	return out
}

var exampleBuffer = []byte{0x00, 0x48, 0x8B, 0x11, 0x22, 0x48, 0x8B, 0x33, 0x44}

func TestScan_NotationExamples(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    pattern.Notation
	}{
		{"ida", "48 8B ? ?", pattern.IDAStyle{}},
		{"code", `\x48\x8b\x00`, pattern.CodeStyle{Mask: "x x ?"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := pattern.Compile(tt.text, tt.n)
			require.NoError(t, err)
			s, err := Build(p, SingleThreaded())
			require.NoError(t, err)

			var got []int
			stopped := s.Scan(exampleBuffer, func(off int) bool {
				got = append(got, off)
				return false
			})

			assert.False(t, stopped)
			assert.Equal(t, []int{1, 5}, got)
		})
	}
}

func TestScan_HexStringExample(t *testing.T) {
	p := pattern.MustCompile("488b????", pattern.HexString{})
	s := MustBuild(p, SingleThreaded())

	assert.Equal(t, []int{0}, s.FindAll([]byte{0x48, 0x8b, 0xAA, 0xBB}))
	assert.Empty(t, s.FindAll([]byte{0x48, 0x8b, 0xAA}))
}

func TestBuild_RejectsEmptyPattern(t *testing.T) {
	_, err := Build(pattern.Pattern{}, SingleThreaded())
	assert.ErrorIs(t, err, pattern.ErrEmptyPattern)

	assert.Panics(t, func() { MustBuild(pattern.Pattern{}, SingleThreaded()) })
}

func TestThreadConfig(t *testing.T) {
	assert.Equal(t, 1, SingleThreaded().Threads())
	assert.Equal(t, 1, FixedThreads(0).Threads())
	assert.Equal(t, 1, FixedThreads(-3).Threads())
	assert.Equal(t, 6, FixedThreads(6).Threads())
	assert.GreaterOrEqual(t, AllAvailableThreads().Threads(), 1)
	assert.Equal(t, 1, ThreadConfig{}.Threads())
}

func TestScan_ParallelMatchesSingleThreaded(t *testing.T) {
	data := randomBytes(10_000, 4, 42)
	patterns := []string{"00 01", "01 ? 02 03", "? ? ?", "03", "00 ? ? 00 ? 01", "02 02 02 ?"}

	for _, text := range patterns {
		p := pattern.MustCompile(text, pattern.IDAStyle{})
		want := MustBuild(p, SingleThreaded()).FindAll(data)
		require.NotEmpty(t, want, text)

		for _, threads := range []int{2, 3, 4, 7, 16, 64} {
			got := MustBuild(p, FixedThreads(threads)).FindAll(data)
			assert.Equal(t, want, got, "pattern %q with %d threads", text, threads)
		}
	}
}

func TestScan_MatchStraddlingSegmentBoundary(t *testing.T) {
	// 100 bytes over 4 workers gives boundaries at 25, 50 and 75.
	p := pattern.MustCompile("DE AD BE EF", pattern.IDAStyle{})
	for _, start := range []int{21, 22, 23, 24, 25, 47, 72} {
		data := make([]byte, 100)
		copy(data[start:], []byte{0xDE, 0xAD, 0xBE, 0xEF})

		var (
			mu  sync.Mutex
			got []int
		)
		MustBuild(p, FixedThreads(4)).Scan(data, func(off int) bool {
			mu.Lock()
			got = append(got, off)
			mu.Unlock()
			return false
		})

		assert.Equal(t, []int{start}, got, "match at %d", start)
	}
}

func TestScan_AllWildcardsEveryOffset(t *testing.T) {
	data := randomBytes(257, 256, 1)
	p := pattern.MustCompile("? ? ? ?", pattern.IDAStyle{})

	for _, cfg := range []ThreadConfig{SingleThreaded(), FixedThreads(5)} {
		got := MustBuild(p, cfg).FindAll(data)
		require.Len(t, got, len(data)-3)
		for i, off := range got {
			assert.Equal(t, i, off)
		}
	}
}

func TestScan_EmptyAndShortBuffers(t *testing.T) {
	p := pattern.MustCompile("48 8B 05", pattern.IDAStyle{})

	for _, cfg := range []ThreadConfig{SingleThreaded(), FixedThreads(8)} {
		s := MustBuild(p, cfg)
		called := false
		cb := func(int) bool {
			called = true
			return false
		}

		assert.False(t, s.Scan(nil, cb))
		assert.False(t, s.Scan([]byte{}, cb))
		assert.False(t, s.Scan([]byte{0x48, 0x8B}, cb))
		assert.False(t, called)
		assert.Zero(t, s.Count([]byte{0x48}))
	}
}

func TestScan_StopOnFirstSingleThreaded(t *testing.T) {
	s := MustBuild(pattern.MustCompile("AA", pattern.IDAStyle{}), SingleThreaded())
	data := []byte{0x00, 0xAA, 0xAA, 0xAA}

	var got []int
	stopped := s.Scan(data, func(off int) bool {
		got = append(got, off)
		return true
	})

	assert.True(t, stopped)
	assert.Equal(t, []int{1}, got)
}

func TestScan_StopParallel(t *testing.T) {
	data := make([]byte, 1<<16)
	s := MustBuild(pattern.MustCompile("00 00", pattern.IDAStyle{}), FixedThreads(8))

	var calls atomic.Int64
	stopped := s.Scan(data, func(int) bool {
		calls.Add(1)
		return true
	})

	assert.True(t, stopped)
	// At most one hit per worker can be in flight when the flag is set.
	assert.GreaterOrEqual(t, calls.Load(), int64(1))
	assert.LessOrEqual(t, calls.Load(), int64(8))
}

func TestScan_OffsetsIncreasingSingleThreaded(t *testing.T) {
	data := randomBytes(2048, 2, 9)
	s := MustBuild(pattern.MustCompile("01 ? 01", pattern.IDAStyle{}), SingleThreaded())

	last := -1
	s.Scan(data, func(off int) bool {
		assert.Greater(t, off, last)
		last = off
		return false
	})
	assert.GreaterOrEqual(t, last, 0)
}

func TestScan_ConcurrentUse(t *testing.T) {
	data := randomBytes(4096, 3, 11)
	s := MustBuild(pattern.MustCompile("00 01 02", pattern.IDAStyle{}), FixedThreads(3))
	want := s.FindAll(data)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, s.FindAll(data))
		}()
	}
	wg.Wait()
}

func TestFindFirst(t *testing.T) {
	data := make([]byte, 1000)
	copy(data[600:], []byte{0xC3, 0xCC})
	copy(data[900:], []byte{0xC3, 0xCC})
	p := pattern.MustCompile("C3 CC", pattern.IDAStyle{})

	for _, cfg := range []ThreadConfig{SingleThreaded(), FixedThreads(4), FixedThreads(10)} {
		off, ok := MustBuild(p, cfg).FindFirst(data)
		require.True(t, ok)
		assert.Equal(t, 600, off)

		_, ok = MustBuild(p, cfg).FindFirst(data[:600])
		assert.False(t, ok)
	}
}

func TestCount(t *testing.T) {
	p := pattern.MustCompile("AA", pattern.IDAStyle{})
	data := []byte{0xAA, 0x00, 0xAA, 0xAA}

	assert.Equal(t, 3, MustBuild(p, SingleThreaded()).Count(data))
	assert.Equal(t, 3, MustBuild(p, FixedThreads(3)).Count(data))
}

func TestScanner_String(t *testing.T) {
	s := MustBuild(pattern.MustCompile("48 8B ?", pattern.IDAStyle{}), FixedThreads(4))

	assert.Equal(t, "[ 48 8B ? ] [t=4]", s.String())
	assert.Equal(t, 4, s.Threads())
}
