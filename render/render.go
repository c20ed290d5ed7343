// Copyright 2024 Nostalgic Skin Co.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns image payloads into terminal output.
package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Command pipes the image into an external program (img2sixel by default)
// and returns what it prints.
type Command struct {
	argv []string
}

// NewCommand returns a renderer running argv. The image is written to its stdin.
func NewCommand(argv []string) (*Command, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, fmt.Errorf("render command is empty")
	}
	return &Command{argv: append([]string(nil), argv...)}, nil
}

// Render runs the command over data.
func (c *Command) Render(ctx context.Context, mimetype string, data []byte) ([]byte, error) {
	//nolint:gosec // G204: argv comes from the user's own config file
	cmd := exec.CommandContext(ctx, c.argv[0], c.argv[1:]...)
	cmd.Stdin = bytes.NewReader(data)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("rendering %s with %s failed: %s", mimetype, c.argv[0], strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("rendering %s with %s failed: %w", mimetype, c.argv[0], err)
	}
	return stdout.Bytes(), nil
}
