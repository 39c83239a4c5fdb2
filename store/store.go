// Package store manages the local directory downloads are saved into.
//
// Filenames are deduplicated with [Dir.Unique] and written with [Dir.Save],
// which never leaves a partial file behind. The check in Unique and the
// write in Save are separate steps: two processes saving the same name into
// the same directory at the same moment can still race. Save refuses to
// overwrite in that case and reports an error instead.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/caffeineduck/fetchimg/naming"
)

const (
	DefaultDirPermissions = 0755
	// DefaultFilePermissions is applied to every saved file as is. Unlike
	// os.WriteFile, Save does not apply the process umask.
	DefaultFilePermissions = 0644

	// tempPattern matches the in-flight files Save creates.
	tempPattern = ".fetchimg-*.part"
)

// ErrNotDirectory is returned by Open when the path exists but is a file.
var ErrNotDirectory = errors.New("not a directory")

// Dir is a download directory on the host filesystem.
type Dir struct {
	path string
}

// Open returns the directory at path, creating it and any missing parents.
func Open(path string) (*Dir, error) {
	if path == "" {
		return nil, errors.New("directory path required")
	}

	info, err := os.Stat(path)
	switch {
	case err == nil:
		if !info.IsDir() {
			return nil, fmt.Errorf("%s: %w", path, ErrNotDirectory)
		}
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(path, DefaultDirPermissions); err != nil {
			return nil, fmt.Errorf("mkdir error: %w", err)
		}
	default:
		return nil, fmt.Errorf("stat error: %w", err)
	}

	return &Dir{path: path}, nil
}

// Path returns the directory path as given to Open.
func (d *Dir) Path() string {
	return d.path
}

// Unique returns name if nothing exists under it yet, otherwise the first
// free name of the form stem_N.ext with N counting up from 1. The stem is
// shortened where needed to keep every candidate within
// naming.MaxNameLength bytes.
func (d *Dir) Unique(name string) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid filename %q", name)
	}

	stem, ext := naming.SplitExt(name)
	candidate := naming.Fit(stem, "", ext)
	for i := 1; ; i++ {
		if candidate == "" {
			return "", fmt.Errorf("filename %q too long", name)
		}
		exists, err := d.exists(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = naming.Fit(stem, "_"+strconv.Itoa(i), ext)
	}
}

// Save writes data to name inside the directory and returns the full path.
// Data goes to a temporary file first and is moved into place only once it
// has been completely written and synced.
func (d *Dir) Save(name string, data []byte) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid filename %q", name)
	}
	target := filepath.Join(d.path, name)

	tmp, err := os.CreateTemp(d.path, tempPattern)
	if err != nil {
		return "", fmt.Errorf("create error: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		// The temp name is either linked into place or abandoned.
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return "", fmt.Errorf("write error: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("sync error: %w", err)
	}
	if err := tmp.Chmod(DefaultFilePermissions); err != nil {
		return "", fmt.Errorf("chmod error: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close error: %w", err)
	}

	if err := place(tmpPath, target); err != nil {
		return "", err
	}
	return target, nil
}

func (d *Dir) exists(name string) (bool, error) {
	_, err := os.Lstat(filepath.Join(d.path, name))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat error: %w", err)
	}
}

// place moves src to dst without replacing an existing dst. Hard links give
// that guarantee; filesystems without them fall back to a plain rename after
// one more existence check.
func place(src, dst string) error {
	err := os.Link(src, dst)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%s already exists: %w", filepath.Base(dst), fs.ErrExist)
	}

	if _, statErr := os.Lstat(dst); statErr == nil {
		return fmt.Errorf("%s already exists: %w", filepath.Base(dst), fs.ErrExist)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("rename error: %w", err)
	}
	return nil
}
