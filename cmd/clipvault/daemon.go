// Copyright 2024 Nostalgic Skin Co.
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newDaemonCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Start a clipboard watcher that stores every change",
		Long: `Starts "wl-paste --watch clipvault store" in the background and exits.

The history file has no locking: a store from the watcher racing a take
from the terminal can lose one of the two updates.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := a.exe()
			if err != nil {
				return fmt.Errorf("cannot locate clipvault binary: %w", err)
			}
			argv := []string{exe}
			if a.configPath != "" {
				abs, err := filepath.Abs(a.configPath)
				if err != nil {
					return err
				}
				argv = append(argv, "--config", abs)
			}
			argv = append(argv, "store")

			pid, err := a.watcher.Watch(argv)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "clipboard watcher started (pid %d)\n", pid)
			return nil
		},
	}
}
