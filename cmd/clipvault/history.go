// Copyright 2024 Nostalgic Skin Co.
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"bytes"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/nostalgicskinco/clipvault/vault"
)

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "history",
		Aliases: []string{"list"},
		Short:   "Print clipboard history",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.loadedHistory()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			index := lipgloss.NewRenderer(out).NewStyle().Bold(true)

			var errs error
			for line, err := range h.Lines(cmd.Context()) {
				label := index.Render(fmt.Sprintf("%d:", line.Index))
				if err != nil {
					a.logger.Warn("cannot show entry", zap.Int("index", line.Index), zap.Error(err))
					fmt.Fprintf(out, "%s [%s unavailable]\n", label, line.Mimetype)
					errs = multierr.Append(errs, fmt.Errorf("entry %d: %w", line.Index, err))
					continue
				}
				if line.Class == vault.Binary {
					fmt.Fprintln(out, label)
					_, _ = out.Write(line.Text)
					if !bytes.HasSuffix(line.Text, []byte("\n")) {
						fmt.Fprintln(out)
					}
					continue
				}
				fmt.Fprintf(out, "%s %s\n", label, line.Text)
			}
			return errs
		},
	}
}
