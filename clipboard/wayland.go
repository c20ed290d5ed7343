// Copyright 2024 Nostalgic Skin Co.
// SPDX-License-Identifier: AGPL-3.0-or-later

package clipboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Text types preferred over anything else the clipboard offers, best first.
var textMimetypes = []string{
	"text/plain;charset=utf-8",
	"text/plain",
	"UTF8_STRING",
	"STRING",
	"TEXT",
}

// wl-copy forks a child that keeps serving the selection and may hold our
// pipes open; stop waiting for them after this long.
const copyWaitDelay = 500 * time.Millisecond

type runFunc func(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)

// Wayland talks to the clipboard through the wl-clipboard tools.
type Wayland struct {
	paste  string
	copy   string
	logger *zap.Logger
	run    runFunc
}

// NewWayland returns a gateway that shells out to pasteCmd and copyCmd
// (normally wl-paste and wl-copy).
func NewWayland(pasteCmd, copyCmd string, logger *zap.Logger) *Wayland {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Wayland{
		paste:  pasteCmd,
		copy:   copyCmd,
		logger: logger,
		run:    runCommand,
	}
}

// Get reads the clipboard, preferring a text mimetype when one is offered.
func (w *Wayland) Get(ctx context.Context) Snapshot {
	out, err := w.run(ctx, nil, w.paste, "--list-types")
	if err != nil {
		w.logger.Debug("clipboard unreadable", zap.Error(err))
		return Empty()
	}

	mimetype := pickMimetype(strings.Split(strings.TrimSpace(string(out)), "\n"))
	if mimetype == "" {
		return Empty()
	}

	data, err := w.run(ctx, nil, w.paste, "--no-newline", "--type", mimetype)
	if err != nil {
		w.logger.Debug("clipboard read failed", zap.String("mimetype", mimetype), zap.Error(err))
		return Empty()
	}
	return Snapshot{Mimetype: mimetype, Data: data}
}

// Set writes s to the clipboard.
func (w *Wayland) Set(ctx context.Context, s Snapshot) error {
	if _, err := w.run(ctx, s.Data, w.copy, "--type", s.Mimetype); err != nil {
		return fmt.Errorf("%w: %w", ErrGateway, err)
	}
	w.logger.Debug("clipboard set", zap.String("mimetype", s.Mimetype), zap.Int("bytes", len(s.Data)))
	return nil
}

func pickMimetype(offered []string) string {
	seen := make(map[string]bool, len(offered))
	first := ""
	for _, m := range offered {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if first == "" {
			first = m
		}
		seen[m] = true
	}
	for _, m := range textMimetypes {
		if seen[m] {
			return m
		}
	}
	return first
}

func runCommand(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = copyWaitDelay

	if err := cmd.Run(); err != nil && !errors.Is(err, exec.ErrWaitDelay) {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%s failed: %s", name, strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}
	return stdout.Bytes(), nil
}
