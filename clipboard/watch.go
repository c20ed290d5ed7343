// Copyright 2024 Nostalgic Skin Co.
// SPDX-License-Identifier: AGPL-3.0-or-later

package clipboard

import (
	"fmt"
	"os/exec"

	"go.uber.org/zap"
)

// Watch starts `paste --watch argv...` in the background so that argv runs on
// every clipboard change. The watcher is not supervised; Watch returns its pid.
func (w *Wayland) Watch(argv []string) (int, error) {
	if len(argv) == 0 {
		return 0, fmt.Errorf("watch command is empty")
	}
	args := append([]string{"--watch"}, argv...)
	//nolint:gosec // G204: argv is this binary's own path and flags
	cmd := exec.Command(w.paste, args...)
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start clipboard watcher: %w", err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, err
	}
	w.logger.Info("clipboard watcher started", zap.Int("pid", pid), zap.Strings("argv", argv))
	return pid, nil
}
