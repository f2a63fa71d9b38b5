// SPDX-License-Identifier: MIT
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"eeg/internal/analysis"
	"eeg/internal/artifact"
	"eeg/internal/log"

	"github.com/spf13/cobra"
)

func newAnalyzeCmd(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Report the dominant band of a recorded session",
		Long: "Analyze a session artifact. Without a file argument the newest " +
			artifact.Pattern + " in the session output directory is used.",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return usageErrorf("analyze accepts at most one file, got %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveArtifact(opts.cfg.Session.OutputDir, args)
			if err != nil {
				return err
			}
			summary, err := analysis.New().AnalyzeFile(path)
			if err != nil {
				return fmt.Errorf("analyze %s: %w", path, err)
			}
			if asJSON {
				enc := json.NewEncoder(opts.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			return printSummary(opts.stdout, path, summary)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	return cmd
}

// resolveArtifact returns the explicit path, or the newest artifact in dir.
func resolveArtifact(dir string, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	path, err := artifact.Latest(dir)
	if errors.Is(err, artifact.ErrNoArtifacts) {
		return "", usageErrorf("no file given and no %s found in %s", artifact.Pattern, dir)
	}
	if err != nil {
		return "", err
	}
	log.Infof("Analyze: Using newest session %s", path)
	return path, nil
}

func printSummary(w io.Writer, path string, s *analysis.Summary) error {
	if _, err := fmt.Fprintf(w, "Session: %s (%d rows)\n\nAverage power per band:\n", path, s.Rows); err != nil {
		return err
	}
	for _, p := range s.Powers {
		if p.Missing {
			fmt.Fprintf(w, "  %-6s n/a\n", p.Band)
			continue
		}
		fmt.Fprintf(w, "  %-6s %.4f\n", p.Band, p.Mean)
	}
	_, err := fmt.Fprintf(w, "\nDominant band: %s (%.4f)\nInferred state: %s\n", s.DominantBand, s.DominantPower, s.State)
	return err
}
