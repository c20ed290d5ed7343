// Copyright 2024 Nostalgic Skin Co.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package vault keeps the bounded clipboard history: an ordered list of
// entries persisted to a YAML file, with image payloads spilled to a blob store.
package vault

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"path/filepath"
	"slices"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/nostalgicskinco/clipvault/clipboard"
	"github.com/nostalgicskinco/clipvault/vault/crypto"
	"github.com/nostalgicskinco/clipvault/vault/storage"
)

// Renderer turns an image payload into printable terminal output.
type Renderer interface {
	Render(ctx context.Context, mimetype string, data []byte) ([]byte, error)
}

// Line is one rendered history entry.
type Line struct {
	Index    int
	Mimetype string
	Class    Class
	// Text is the inline payload, or the renderer's output for binary entries.
	Text []byte
}

// History is the ordered clipboard history, oldest entry first.
//
// A History is owned by one invocation; concurrent processes writing the same
// file race and the last writer wins.
type History struct {
	path     string
	capacity int
	fs       afero.Fs
	blobs    storage.Backend
	sealer   crypto.Sealer
	gateway  clipboard.Gateway
	renderer Renderer
	ignore   []glob.Glob
	logger   *zap.Logger

	entries []Entry
}

// Option configures a History.
type Option func(h *History)

// WithFs sets the filesystem holding the history file. Defaults to the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(h *History) {
		h.fs = fs
	}
}

// WithCapacity sets the maximum number of entries.
func WithCapacity(n int) Option {
	return func(h *History) {
		h.capacity = n
	}
}

// WithSealer encrypts inline payloads at rest.
func WithSealer(s crypto.Sealer) Option {
	return func(h *History) {
		h.sealer = s
	}
}

// WithGateway sets the live clipboard used by Store and Take.
func WithGateway(g clipboard.Gateway) Option {
	return func(h *History) {
		h.gateway = g
	}
}

// WithRenderer sets the image renderer used by Lines.
func WithRenderer(r Renderer) Option {
	return func(h *History) {
		h.renderer = r
	}
}

// WithIgnore drops snapshots whose mimetype matches any of the patterns.
func WithIgnore(patterns ...glob.Glob) Option {
	return func(h *History) {
		h.ignore = patterns
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *History) {
		h.logger = l
	}
}

// New returns an empty, unloaded history backed by the file at path.
// Call Load before Store or Take; Clear works without it.
func New(path string, blobs storage.Backend, opts ...Option) *History {
	h := &History{
		path:     path,
		capacity: DefaultCapacity,
		fs:       afero.NewOsFs(),
		blobs:    blobs,
		sealer:   crypto.Nop(),
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Open creates a history and loads it from disk.
func Open(path string, blobs storage.Backend, opts ...Option) (*History, error) {
	h := New(path, blobs, opts...)
	if err := h.Load(); err != nil {
		return nil, err
	}
	return h, nil
}

// Len returns the number of entries.
func (h *History) Len() int { return len(h.entries) }

// Entries returns a copy of the entries, oldest first.
func (h *History) Entries() []Entry { return slices.Clone(h.entries) }

// Load replaces the in-memory entries with the persisted ones.
func (h *History) Load() error {
	data, err := afero.ReadFile(h.fs, h.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptStore, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var entries []Entry
	if err := dec.Decode(&entries); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %s is empty", ErrCorruptStore, h.path)
		}
		return fmt.Errorf("%w: %s: %w", ErrCorruptStore, h.path, err)
	}
	for i, e := range entries {
		if e.Mimetype == "" {
			return fmt.Errorf("%w: %s: entry %d has no mimetype", ErrCorruptStore, h.path, i)
		}
	}

	h.entries = entries
	h.logger.Debug("history loaded", zap.String("path", h.path), zap.Int("entries", len(entries)))
	return nil
}

// Store appends the current clipboard content.
func (h *History) Store(ctx context.Context) error {
	if h.gateway == nil {
		return errors.New("no clipboard gateway configured")
	}
	return h.StoreSnapshot(h.gateway.Get(ctx))
}

// StoreSnapshot appends snap, evicts the oldest entries while the history is
// over capacity, and persists. Image payloads go to a new blob.
func (h *History) StoreSnapshot(snap clipboard.Snapshot) error {
	if h.ignored(snap.Mimetype) {
		h.logger.Info("snapshot ignored", zap.String("mimetype", snap.Mimetype))
		return nil
	}

	entry := Entry{Mimetype: snap.Mimetype}
	var written storage.Reference
	switch Classify(snap.Mimetype) {
	case Binary:
		n, err := h.blobs.Next()
		if err != nil {
			return err
		}
		ref, err := h.blobs.Write(n, snap.Data)
		if err != nil {
			return err
		}
		written = ref
		entry.Payload = Payload(ref)
	default:
		sealed, err := h.sealer.Seal(snap.Data)
		if err != nil {
			return err
		}
		entry.Payload = sealed
	}

	prev := h.entries
	next := append(slices.Clone(prev), entry)
	var evicted []Entry
	if over := len(next) - h.capacity; over > 0 {
		evicted = next[:over]
		next = next[over:]
	}

	h.entries = next
	if err := h.save(); err != nil {
		h.entries = prev
		if written != "" {
			if derr := h.blobs.Delete(written); derr != nil {
				h.logger.Error("failed to remove blob after failed save", zap.String("ref", string(written)), zap.Error(derr))
			}
		}
		return err
	}

	var errs error
	for _, e := range evicted {
		if e.Class() != Binary {
			continue
		}
		if err := h.blobs.Delete(e.Reference()); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("evicting %s: %w", e.Reference(), err))
		}
	}
	if errs != nil {
		return errs
	}

	h.logger.Debug("entry stored",
		zap.String("mimetype", entry.Mimetype),
		zap.Stringer("class", entry.Class()),
		zap.Int("entries", len(h.entries)),
		zap.Int("evicted", len(evicted)),
	)
	return nil
}

// Take writes the selected entry back to the clipboard and removes it from the
// history. Later entries move down by one index. It returns what was written.
func (h *History) Take(ctx context.Context, sel Selector) (clipboard.Snapshot, error) {
	if h.gateway == nil {
		return clipboard.Snapshot{}, errors.New("no clipboard gateway configured")
	}
	i, err := sel.resolve(len(h.entries))
	if err != nil {
		return clipboard.Snapshot{}, err
	}

	entry := h.entries[i]
	data, err := h.payload(entry)
	if err != nil {
		return clipboard.Snapshot{}, err
	}
	snap := clipboard.Snapshot{Mimetype: entry.Mimetype, Data: data}
	if err := h.gateway.Set(ctx, snap); err != nil {
		return clipboard.Snapshot{}, err
	}

	prev := h.entries
	h.entries = slices.Delete(slices.Clone(prev), i, i+1)
	if err := h.save(); err != nil {
		h.entries = prev
		return clipboard.Snapshot{}, err
	}

	if entry.Class() == Binary {
		if err := h.blobs.Delete(entry.Reference()); err != nil {
			return snap, err
		}
	}

	h.logger.Debug("entry taken", zap.Int("index", i), zap.String("mimetype", entry.Mimetype))
	return snap, nil
}

// Clear empties the history, persists it and wipes the blob directory.
// It does not need a loaded history, so it also initializes a fresh store.
func (h *History) Clear() error {
	h.entries = nil
	if err := h.save(); err != nil {
		return err
	}
	if err := h.blobs.Purge(); err != nil {
		return err
	}
	h.logger.Info("history cleared", zap.String("path", h.path))
	return nil
}

// Lines yields every entry with its rendering, oldest first. The sequence can
// be iterated any number of times and never mutates the history.
func (h *History) Lines(ctx context.Context) iter.Seq2[Line, error] {
	return func(yield func(Line, error) bool) {
		for i, e := range h.entries {
			line := Line{Index: i, Mimetype: e.Mimetype, Class: e.Class()}
			data, err := h.payload(e)
			if err == nil && line.Class == Binary {
				if h.renderer == nil {
					err = errors.New("no image renderer configured")
				} else {
					data, err = h.renderer.Render(ctx, e.Mimetype, data)
				}
			}
			line.Text = data
			if !yield(line, err) {
				return
			}
		}
	}
}

func (h *History) payload(e Entry) ([]byte, error) {
	if e.Class() == Binary {
		return h.blobs.Read(e.Reference())
	}
	return h.sealer.Open(e.Payload)
}

func (h *History) ignored(mimetype string) bool {
	for _, g := range h.ignore {
		if g.Match(mimetype) {
			return true
		}
	}
	return false
}

// save writes the entries to a temp file next to the history file and renames
// it into place, so the file on disk is either the old or the new version.
func (h *History) save() error {
	entries := h.entries
	if entries == nil {
		entries = []Entry{}
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	dir := filepath.Dir(h.path)
	if err := h.fs.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := afero.TempFile(h.fs, dir, filepath.Base(h.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = h.fs.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = h.fs.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = h.fs.Remove(tmpPath)
		return err
	}
	return h.fs.Rename(tmpPath, h.path)
}
