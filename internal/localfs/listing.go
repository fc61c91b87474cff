package localfs

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/filehop/filehop/internal/models"
)

// List returns the contents of dir (not recursive) as listing entries,
// directories first then by name. Symlinks are reported as what they point
// to; dangling links and entries that cannot be stat'ed are skipped.
func List(dir string, opts ListOptions) ([]models.FileEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	result := make([]models.FileEntry, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !opts.IncludeHidden && IsHiddenName(name) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			info, err = os.Stat(filepath.Join(dir, name))
			if err != nil {
				continue
			}
		}
		result = append(result, ToEntry(name, info))
	}

	models.SortEntries(result)
	return result, nil
}

// ToEntry converts file info into a listing entry. Directories report size 0.
func ToEntry(name string, info fs.FileInfo) models.FileEntry {
	e := models.FileEntry{
		Name:  name,
		IsDir: info.IsDir(),
	}
	if !e.IsDir && info.Size() > 0 {
		e.Size = uint64(info.Size())
	}
	if mt := info.ModTime(); !mt.IsZero() && mt.Unix() > 0 {
		e.Modified = mt.Unix()
	}
	return e
}

// File is a regular file found by Walk.
type File struct {
	Path   string // local path
	RelDir string // slash-separated directory relative to the walk root, "" at the top
	Name   string
	Size   uint64
}

// Open opens the file for reading.
func (f File) Open() (io.ReadCloser, error) {
	return os.Open(f.Path)
}

// Walk collects the regular files under root, depth-first in lexical order.
// Directories are reported to onDir (relative, slash-separated, parents
// before children) so a caller can recreate the tree before uploading.
// If root is a file, it is the only result.
func Walk(root string, opts WalkOptions, onDir func(relDir string) error) ([]File, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []File{{Path: root, Name: filepath.Base(root), Size: uint64(info.Size())}}, nil
	}

	var files []File
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, the rest of the tree still goes.
			if d != nil && d.IsDir() && p != root {
				return filepath.SkipDir
			}
			return nil
		}
		if p == root {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		if !opts.IncludeHidden && hasHiddenComponent(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if onDir != nil {
				return onDir(filepath.ToSlash(rel))
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return nil
		}
		relDir := filepath.ToSlash(filepath.Dir(rel))
		if relDir == "." {
			relDir = ""
		}
		files = append(files, File{Path: p, RelDir: relDir, Name: d.Name(), Size: uint64(fi.Size())})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
