// Copyright 2024 Nostalgic Skin Co.
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"github.com/spf13/cobra"
)

func newClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear history and delete every stored image",
		Long:  `Empties the history and wipes the blob directory. Also creates the history file on first run.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.history()
			if err != nil {
				return err
			}
			return h.Clear()
		},
	}
}
