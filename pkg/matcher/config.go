package matcher

import "runtime"

// ThreadConfig selects how many workers a Scanner uses. It is fixed when the
// scanner is built. The zero value behaves like SingleThreaded.
type ThreadConfig struct {
	threads int
}

// SingleThreaded runs every scan inline on the calling goroutine.
func SingleThreaded() ThreadConfig {
	return ThreadConfig{threads: 1}
}

// FixedThreads uses n workers. Values below 1 are treated as 1.
func FixedThreads(n int) ThreadConfig {
	if n < 1 {
		n = 1
	}
	return ThreadConfig{threads: n}
}

// AllAvailableThreads uses one worker per logical CPU.
func AllAvailableThreads() ThreadConfig {
	return FixedThreads(runtime.NumCPU())
}

// Threads returns the worker count, always at least 1.
func (c ThreadConfig) Threads() int {
	if c.threads < 1 {
		return 1
	}
	return c.threads
}
