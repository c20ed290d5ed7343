// Copyright 2024 Nostalgic Skin Co.
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"github.com/spf13/cobra"

	"github.com/nostalgicskinco/clipvault/vault"
)

func newTakeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "take <index|last>",
		Short: "Move an entry from history back to the clipboard",
		Long: `Writes the entry at the given index (or the newest one for "last") to the
clipboard and removes it from history. Later entries move down by one, so
list the history again before taking another index.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := vault.ParseSelector(args[0])
			if err != nil {
				return err
			}
			h, err := a.loadedHistory()
			if err != nil {
				return err
			}
			_, err = h.Take(cmd.Context(), sel)
			return err
		},
	}
}
