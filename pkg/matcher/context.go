package matcher

// ExtractContext returns up to n bytes before start and after end. The
// results are copies, so keeping them does not pin content in memory.
// Invalid bounds yield nil slices.
func ExtractContext(content []byte, start, end, n int) (before, after []byte) {
	if n <= 0 || start < 0 || end > len(content) || start > end {
		return nil, nil
	}

	if from := max(0, start-n); from < start {
		before = append([]byte{}, content[from:start]...)
	}
	if to := min(len(content), end+n); end < to {
		after = append([]byte{}, content[end:to]...)
	}
	return before, after
}
