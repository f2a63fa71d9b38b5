// SPDX-License-Identifier: MIT
package cmd

import (
	"eeg/internal/analysis"
	"eeg/internal/tui"

	"github.com/spf13/cobra"
)

func newBrowseCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "browse [dir]",
		Short: "Browse recorded sessions in a terminal UI",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return usageErrorf("browse accepts at most one directory, got %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := opts.cfg.Session.OutputDir
			if len(args) == 1 {
				dir = args[0]
			}
			return tui.StartSessionBrowser(dir, analysis.New())
		},
	}
}
