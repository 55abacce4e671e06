// Package jsonstore persists a single JSON document on an afero filesystem.
package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// File is one JSON document. It does no locking; callers hold their own
// mutex around Load and Save.
type File struct {
	fs   afero.Fs
	path string
}

// New returns a File at path on fs, or on the OS filesystem when fs is nil.
func New(fs afero.Fs, path string) *File {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &File{fs: fs, path: path}
}

// Path returns the document location.
func (f *File) Path() string { return f.path }

// Load decodes the document into v. It reports false without error when the
// file does not exist or is empty.
func (f *File) Load(v any) (bool, error) {
	file, err := f.fs.Open(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("open %s: %w", filepath.Base(f.path), err)
	}
	defer file.Close()

	if info, err := file.Stat(); err == nil && info.Size() == 0 {
		return false, nil
	}

	if err := json.NewDecoder(file).Decode(v); err != nil {
		return false, fmt.Errorf("decode %s: %w", filepath.Base(f.path), err)
	}
	return true, nil
}

// Save writes v through a temp file that replaces the document on success,
// so a crash never leaves a truncated file behind.
func (f *File) Save(v any) error {
	name := filepath.Base(f.path)
	if err := f.fs.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", name, err)
	}

	tmp := f.path + ".tmp"
	file, err := f.fs.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s temp file: %w", name, err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		file.Close()
		_ = f.fs.Remove(tmp)
		return fmt.Errorf("encode %s: %w", name, err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = f.fs.Remove(tmp)
		return fmt.Errorf("sync %s: %w", name, err)
	}

	if err := file.Close(); err != nil {
		_ = f.fs.Remove(tmp)
		return fmt.Errorf("close %s temp file: %w", name, err)
	}

	if err := f.fs.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
