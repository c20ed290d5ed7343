// Copyright 2024 Nostalgic Skin Co.
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/nostalgicskinco/clipvault/vault/crypto"
)

// Filesystem stores blobs as numbered files in a single directory.
type Filesystem struct {
	fs     afero.Fs
	dir    string
	sealer crypto.Sealer
	strict bool
	logger *zap.Logger
}

// Option configures a Filesystem backend.
type Option func(*Filesystem)

// WithFs sets the filesystem the backend works on. Defaults to the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(f *Filesystem) {
		f.fs = fs
	}
}

// WithSealer encrypts blob contents at rest.
func WithSealer(s crypto.Sealer) Option {
	return func(f *Filesystem) {
		f.sealer = s
	}
}

// WithStrictNames makes Next fail on non-numeric file names instead of skipping them.
func WithStrictNames(strict bool) Option {
	return func(f *Filesystem) {
		f.strict = strict
	}
}

// WithLogger sets the logger used for skipped files.
func WithLogger(l *zap.Logger) Option {
	return func(f *Filesystem) {
		f.logger = l
	}
}

// NewFilesystem creates a blob backend rooted at dir, creating the directory if needed.
func NewFilesystem(dir string, opts ...Option) (*Filesystem, error) {
	if dir == "" {
		return nil, fmt.Errorf("blob directory is required")
	}
	f := &Filesystem{
		fs:     afero.NewOsFs(),
		dir:    filepath.Clean(dir),
		sealer: crypto.Nop(),
		logger: zap.NewNop(),
	}
	for _, apply := range opts {
		apply(f)
	}
	if err := f.fs.MkdirAll(f.dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return f, nil
}

// Dir returns the blob directory.
func (f *Filesystem) Dir() string { return f.dir }

// Next scans the directory and returns one more than the highest blob number,
// or 1 when there are none. Numbers are never reused while the directory
// holds a higher one.
func (f *Filesystem) Next() (int, error) {
	infos, err := afero.ReadDir(f.fs, f.dir)
	if err != nil {
		return 0, err
	}

	highest := 0
	for _, fi := range infos {
		n, ok := parseBlobName(fi.Name())
		if !ok || fi.IsDir() {
			if f.strict {
				return 0, fmt.Errorf("%w: %s", ErrCorruptBlobName, filepath.Join(f.dir, fi.Name()))
			}
			f.logger.Warn("skipping unexpected file in blob directory",
				zap.String("dir", f.dir),
				zap.String("name", fi.Name()),
			)
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}

// Write stores data as blob n.
func (f *Filesystem) Write(n int, data []byte) (Reference, error) {
	if n < 1 {
		return "", fmt.Errorf("invalid blob number %d", n)
	}
	sealed, err := f.sealer.Seal(data)
	if err != nil {
		return "", fmt.Errorf("failed to seal blob %d: %w", n, err)
	}

	path := filepath.Join(f.dir, strconv.Itoa(n))
	if err := afero.WriteFile(f.fs, path, sealed, 0o600); err != nil {
		return "", err
	}
	return Reference(path), nil
}

// Read returns the payload of the referenced blob.
func (f *Filesystem) Read(ref Reference) ([]byte, error) {
	path, err := f.resolve(ref)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(f.fs, path)
	if err != nil {
		return nil, err
	}
	plain, err := f.sealer.Open(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob %s: %w", path, err)
	}
	return plain, nil
}

// Delete removes the referenced blob.
func (f *Filesystem) Delete(ref Reference) error {
	path, err := f.resolve(ref)
	if err != nil {
		return err
	}
	return f.fs.Remove(path)
}

// Purge removes everything in the blob directory.
func (f *Filesystem) Purge() error {
	infos, err := afero.ReadDir(f.fs, f.dir)
	if err != nil {
		return err
	}
	var errs error
	for _, fi := range infos {
		errs = multierr.Append(errs, f.fs.RemoveAll(filepath.Join(f.dir, fi.Name())))
	}
	return errs
}

func (f *Filesystem) resolve(ref Reference) (string, error) {
	path := filepath.Clean(string(ref))
	if filepath.Dir(path) != f.dir {
		return "", fmt.Errorf("%w: %q", ErrForeignReference, ref)
	}
	if _, ok := parseBlobName(filepath.Base(path)); !ok {
		return "", fmt.Errorf("%w: %q", ErrForeignReference, ref)
	}
	return path, nil
}

// parseBlobName accepts plain ASCII decimal names only; no sign, no extension.
func parseBlobName(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	for i := 0; i < len(name); i++ {
		if name[i] < '0' || name[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(name)
	if err != nil {
		return 0, false
	}
	return n, true
}
