// Copyright 2024 Nostalgic Skin Co.
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"github.com/spf13/cobra"
)

func newStoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "store",
		Short: "Store clipboard contents to history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.loadedHistory()
			if err != nil {
				return err
			}
			return h.Store(cmd.Context())
		},
	}
}
