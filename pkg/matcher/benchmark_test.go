package matcher

import (
	"fmt"
	"testing"

	"github.com/praetorian-inc/aobscan/pkg/pattern"
)

// Throughput of Scan over random data for a selective pattern, a pattern
// ending in wildcards (byte-by-byte fallback) and several thread counts.

func BenchmarkScan(b *testing.B) {
	data := randomBytes(16<<20, 256, 3)
	patterns := map[string]string{
		"concrete":          "48 8B 05 ? ? ? ? 48 85 C0 74",
		"trailing-wildcard": "E8 ? ? ? ?",
	}

	for name, text := range patterns {
		p := pattern.MustCompile(text, pattern.IDAStyle{})
		for _, threads := range []int{1, 4, 8} {
			s := MustBuild(p, FixedThreads(threads))
			b.Run(fmt.Sprintf("%s/threads=%d", name, threads), func(b *testing.B) {
				b.SetBytes(int64(len(data)))
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					s.Count(data)
				}
			})
		}
	}
}

func BenchmarkNewSkipTable(b *testing.B) {
	p := pattern.MustCompile("48 89 5C 24 ? 48 89 74 24 ? 57 48 83 EC 20", pattern.IDAStyle{})
	for i := 0; i < b.N; i++ {
		NewSkipTable(p)
	}
}
