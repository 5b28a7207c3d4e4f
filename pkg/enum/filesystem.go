package enum

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/praetorian-inc/aobscan/pkg/types"
	"golang.org/x/sync/errgroup"
)

// IgnoreFiles are read from the root directory, in this order.
var IgnoreFiles = []string{".aobignore", ".gitignore"}

// FilesystemEnumerator enumerates files below a root path.
type FilesystemEnumerator struct {
	config Config
}

// NewFilesystemEnumerator creates a new filesystem enumerator.
func NewFilesystemEnumerator(config Config) *FilesystemEnumerator {
	return &FilesystemEnumerator{config: config}
}

// Enumerate walks the root and yields every eligible file. Paths are
// collected first; files are then read and handed to callback by a pool of
// readers.
func (e *FilesystemEnumerator) Enumerate(ctx context.Context, callback Callback) error {
	files, err := e.collect(ctx)
	if err != nil {
		return err
	}

	numReaders := e.config.Readers
	if numReaders <= 0 {
		numReaders = runtime.NumCPU()
	}

	origCtx := ctx
	g, ctx := errgroup.WithContext(ctx)
	pathsCh := make(chan string, numReaders*2)

	g.Go(func() error {
		defer close(pathsCh)
		for _, f := range files {
			select {
			case pathsCh <- f:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < numReaders; i++ {
		g.Go(func() error {
			for path := range pathsCh {
				if err := e.processFile(ctx, path, callback); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	// All readers may finish before noticing a cancellation.
	return origCtx.Err()
}

// collect returns the eligible file paths below the root.
func (e *FilesystemEnumerator) collect(ctx context.Context) ([]string, error) {
	rootInfo, err := os.Stat(e.config.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", e.config.Root, err)
	}
	if !rootInfo.IsDir() {
		// An explicitly named file is always scanned.
		return []string{e.config.Root}, nil
	}

	ignore := loadIgnore(e.config.Root)

	var files []string
	err = filepath.WalkDir(e.config.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == e.config.Root {
			return nil
		}

		relPath, err := filepath.Rel(e.config.Root, path)
		if err != nil {
			return err
		}

		if d.IsDir() {
			if !e.config.IncludeHidden && isHidden(d.Name()) {
				return filepath.SkipDir
			}
			if ignore != nil && ignore.MatchesPath(relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !e.config.IncludeHidden && isHidden(d.Name()) {
			return nil
		}
		if ignore != nil && ignore.MatchesPath(relPath) {
			return nil
		}

		info, err := e.fileInfo(path, d)
		if err != nil || info == nil {
			return err
		}
		if e.config.MaxFileSize > 0 && info.Size() > e.config.MaxFileSize {
			e.config.logger().Debug("skipping large file", "path", path, "size", info.Size())
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// fileInfo returns the info of a regular file, resolving symlinks when
// configured. It returns nil for entries that should be skipped.
func (e *FilesystemEnumerator) fileInfo(path string, d os.DirEntry) (os.FileInfo, error) {
	if d.Type()&os.ModeSymlink != 0 {
		if !e.config.FollowSymlinks {
			return nil, nil
		}
		info, err := os.Stat(path)
		if err != nil {
			e.config.logger().Warn("skipping broken symlink", "path", path, "err", err)
			return nil, nil
		}
		if !info.Mode().IsRegular() {
			return nil, nil
		}
		return info, nil
	}
	if !d.Type().IsRegular() {
		return nil, nil
	}
	return d.Info()
}

// loadIgnore compiles the ignore files present in root, or returns nil.
func loadIgnore(root string) *gitignore.GitIgnore {
	var lines []string
	for _, name := range IgnoreFiles {
		data, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			continue
		}
		lines = append(lines, strings.Split(string(data), "\n")...)
	}
	if len(lines) == 0 {
		return nil
	}
	return gitignore.CompileIgnoreLines(lines...)
}

// processFile maps a single file and invokes the callback, expanding
// archives when configured.
func (e *FilesystemEnumerator) processFile(ctx context.Context, path string, callback Callback) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	content, release, err := MapFile(path)
	if err != nil {
		return err
	}
	defer release()

	if e.config.ExtractArchives {
		if kind := DetectArchive(path, content); kind != ArchiveNone {
			return e.processArchive(path, kind, content, callback)
		}
	}

	return callback(content, types.ComputeBlobID(content), types.FileProvenance{FilePath: path})
}

func (e *FilesystemEnumerator) processArchive(path string, kind ArchiveKind, content []byte, callback Callback) error {
	logger := e.config.logger()
	limits := ExtractLimits{MaxMemberSize: e.config.MaxFileSize}

	members, skipped, err := ExtractArchive(kind, content, e.config.ArchivePassword, limits)
	if err != nil {
		logger.Warn("unreadable archive, scanning it as a file", "path", path, "err", err)
		return callback(content, types.ComputeBlobID(content), types.FileProvenance{FilePath: path})
	}
	for _, s := range skipped {
		logger.Warn("skipping archive member", "archive", path, "member", s.Name, "reason", s.Reason)
	}

	for _, m := range members {
		prov := types.ArchiveProvenance{ArchivePath: path, MemberPath: m.Name}
		if err := callback(m.Content, types.ComputeBlobID(m.Content), prov); err != nil {
			return err
		}
	}
	return nil
}

// isHidden checks if a filename is hidden (starts with .).
// The special entries "." and ".." are NOT considered hidden.
func isHidden(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return strings.HasPrefix(name, ".")
}
