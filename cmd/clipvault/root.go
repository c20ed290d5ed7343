// Copyright 2024 Nostalgic Skin Co.
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"github.com/spf13/cobra"
)

const version = "0.1.0"

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:     "clipvault",
		Short:   "Clipboard history with image support",
		Long:    `clipvault stores clipboard contents in a bounded on-disk history and puts old entries back on the clipboard.`,
		Version: version,
		// Cobra prints the error; usage only helps for argument mistakes.
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(a.stdout)
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $HOME/.clipvault/config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newStoreCmd(a),
		newTakeCmd(a),
		newHistoryCmd(a),
		newClearCmd(a),
		newDaemonCmd(a),
	)
	return root
}
