package enum

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// MapFile maps path read-only. The returned release function unmaps it.
// Empty files cannot be mapped and are returned as an empty slice.
func MapFile(path string) ([]byte, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.Size() == 0 {
		return []byte{}, func() error { return nil }, nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to map file %s: %w", path, err)
	}
	return m, m.Unmap, nil
}
