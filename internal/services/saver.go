package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/filehop/filehop/internal/diskspace"
	"github.com/filehop/filehop/internal/pathutil"
	"github.com/filehop/filehop/internal/util/paths"
	"github.com/filehop/filehop/internal/validation"
)

// LocalSaver writes downloads into a local directory. Each file is written
// to a hidden temp file next to its destination and renamed into place, so a
// partially written file never carries the final name.
type LocalSaver struct {
	dir       string
	overwrite bool

	mu       sync.Mutex
	reserver *paths.Reserver
}

// NewLocalSaver creates a saver for dir, creating it if needed. A leading
// ~ and symlinks in dir are resolved. Unless overwrite is set, a name that
// already exists gets a " (n)" suffix.
func NewLocalSaver(dir string, overwrite bool) (*LocalSaver, error) {
	dir, err := pathutil.ResolveAbsolutePath(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve download directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create download directory: %w", err)
	}
	s := &LocalSaver{dir: dir, overwrite: overwrite}
	s.reserver = paths.NewReserver(func(name string) bool {
		_, err := os.Lstat(filepath.Join(dir, name))
		return err == nil
	})
	return s, nil
}

// Dir returns the destination directory.
func (s *LocalSaver) Dir() string {
	return s.dir
}

// Save writes data as name and returns the final local path.
func (s *LocalSaver) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := validation.ValidateFilename(name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := diskspace.CheckForDownload(s.dir, uint64(len(data))); err != nil {
		return "", err
	}

	final := name
	if !s.overwrite {
		s.mu.Lock()
		final = s.reserver.Reserve(name)
		s.mu.Unlock()
		if final == "" {
			return "", fmt.Errorf("no free name for %s in %s", name, s.dir)
		}
	}
	dst := filepath.Join(s.dir, final)

	if err := writeAtomic(dst, data); err != nil {
		if !s.overwrite {
			s.mu.Lock()
			s.reserver.Release(final)
			s.mu.Unlock()
		}
		return "", err
	}
	return dst, nil
}

func writeAtomic(dst string, data []byte) error {
	tmpName := fmt.Sprintf(".%s.%s.filehop-tmp", filepath.Base(dst), uuid.New().String()[:8])
	tmpPath := filepath.Join(filepath.Dir(dst), tmpName)

	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", dst, err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename into %s: %w", dst, err)
	}
	return nil
}
