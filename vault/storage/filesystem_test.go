// Copyright 2024 Nostalgic Skin Co.
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bytes"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"go.uber.org/zap/zaptest"

	"github.com/nostalgicskinco/clipvault/vault/crypto"
)

func newMemBackend(t *testing.T, opts ...Option) (*Filesystem, afero.Fs) {
	t.Helper()
	mem := afero.NewMemMapFs()
	opts = append([]Option{WithFs(mem), WithLogger(zaptest.NewLogger(t))}, opts...)
	be, err := NewFilesystem("/clip/images", opts...)
	if err != nil {
		t.Fatalf("NewFilesystem: %v", err)
	}
	return be, mem
}

func TestFilesystemWriteAndRead(t *testing.T) {
	be, err := NewFilesystem(filepath.Join(t.TempDir(), "images"))
	if err != nil {
		t.Fatalf("NewFilesystem: %v", err)
	}

	data := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}
	ref, err := be.Write(1, data)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if want := filepath.Join(be.Dir(), "1"); string(ref) != want {
		t.Fatalf("ref = %q, want %q", ref, want)
	}

	got, err := be.Read(ref)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("read data = %v, want %v", got, data)
	}
}

func TestFilesystemNextNumbering(t *testing.T) {
	be, _ := newMemBackend(t)

	n, err := be.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if n != 1 {
		t.Fatalf("Next on empty dir = %d, want 1", n)
	}

	for _, num := range []int{1, 2, 9} {
		if _, err := be.Write(num, []byte("x")); err != nil {
			t.Fatalf("Write %d: %v", num, err)
		}
	}
	if n, _ = be.Next(); n != 10 {
		t.Fatalf("Next = %d, want 10", n)
	}

	// Gaps below the maximum are never filled.
	if err := be.Delete(Reference(filepath.Join(be.Dir(), "2"))); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n, _ = be.Next(); n != 10 {
		t.Fatalf("Next after gap = %d, want 10", n)
	}
}

func TestFilesystemNonNumericNames(t *testing.T) {
	be, mem := newMemBackend(t)
	if err := afero.WriteFile(mem, "/clip/images/notes.txt", []byte("?"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := be.Write(4, []byte("img")); err != nil {
		t.Fatal(err)
	}

	n, err := be.Next()
	if err != nil {
		t.Fatalf("Next should skip non-numeric names: %v", err)
	}
	if n != 5 {
		t.Fatalf("Next = %d, want 5", n)
	}

	strict, err := NewFilesystem("/clip/images", WithFs(mem), WithStrictNames(true))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := strict.Next(); !errors.Is(err, ErrCorruptBlobName) {
		t.Fatalf("strict Next error = %v, want ErrCorruptBlobName", err)
	}
}

func TestFilesystemDeleteMissing(t *testing.T) {
	be, _ := newMemBackend(t)
	err := be.Delete(Reference("/clip/images/3"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Delete missing = %v, want fs.ErrNotExist", err)
	}
	if _, err := be.Read(Reference("/clip/images/3")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Read missing = %v, want fs.ErrNotExist", err)
	}
}

func TestFilesystemForeignReference(t *testing.T) {
	be, _ := newMemBackend(t)
	for _, ref := range []Reference{"/etc/passwd", "/clip/images/../history.yaml", "/clip/images/abc", "relative/1"} {
		if _, err := be.Read(ref); !errors.Is(err, ErrForeignReference) {
			t.Errorf("Read(%q) = %v, want ErrForeignReference", ref, err)
		}
		if err := be.Delete(ref); !errors.Is(err, ErrForeignReference) {
			t.Errorf("Delete(%q) = %v, want ErrForeignReference", ref, err)
		}
	}
}

func TestFilesystemPurge(t *testing.T) {
	be, mem := newMemBackend(t)
	for i := 1; i <= 3; i++ {
		if _, err := be.Write(i, []byte{byte(i)}); err != nil {
			t.Fatal(err)
		}
	}
	if err := afero.WriteFile(mem, "/clip/images/stray", []byte("?"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := be.Purge(); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	infos, err := afero.ReadDir(mem, be.Dir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("blob dir has %d entries after purge", len(infos))
	}
}

func TestFilesystemSealed(t *testing.T) {
	env, err := crypto.NewEnvelope("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatal(err)
	}
	be, mem := newMemBackend(t, WithSealer(env))

	data := []byte("\x89PNG\r\n\x1a\n")
	ref, err := be.Write(1, data)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	raw, err := afero.ReadFile(mem, string(ref))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(raw, data) {
		t.Fatal("blob should be sealed on disk")
	}

	got, err := be.Read(ref)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("Read = %q, want %q", got, data)
	}
}
