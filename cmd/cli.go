// SPDX-License-Identifier: MIT
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"eeg/internal/config"
	"eeg/internal/log"
	"eeg/pkg/build"

	"github.com/spf13/cobra"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// UsageError reports a command invoked with arguments it cannot act on.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

func usageErrorf(format string, args ...any) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

type options struct {
	configPath string
	verbose    bool
	logLevel   string

	cfg    *config.Config
	stdin  io.Reader
	stdout io.Writer
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(args []string) int {
	opts := &options{stdin: os.Stdin, stdout: os.Stdout}
	root := newRootCmd(opts)
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return ExitOK
	}
	var ue *UsageError
	if errors.As(err, &ue) {
		fmt.Fprintf(os.Stderr, "Error: %v\nRun '%s --help' for usage.\n", err, root.Name())
		return ExitUsage
	}
	log.Errorf("%v", err)
	return ExitFailure
}

func newRootCmd(opts *options) *cobra.Command {
	buildInfo := build.GetBuildFlags()

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         build.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}
	rootCmd.SetVersionTemplate(buildInfo.String() + "\n")
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Msg: err.Error()}
	})

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"Path to a YAML config file (default ./config.yaml when present)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"Show verbose output (same as --log-level debug)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "",
		"Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newRecordCmd(opts),
		newAnalyzeCmd(opts),
		newServeCmd(opts),
		newBrowseCmd(opts),
		newSimulateCmd(opts),
	)
	return rootCmd
}

// load reads the configuration and applies the logging flags on top of it.
func (o *options) load() error {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return err
	}
	o.cfg = cfg

	name := cfg.LogLevel
	if cfg.Debug {
		name = "debug"
	}
	if o.logLevel != "" {
		name = o.logLevel
	}
	if o.verbose {
		name = "debug"
	}
	lvl, ok := log.ParseLevel(name)
	if !ok {
		return usageErrorf("unknown log level %q", name)
	}
	log.SetLevel(lvl)
	log.Debugf("Config: Loaded (output_dir=%s, broker=%s)", cfg.Session.OutputDir, cfg.Stream.BrokerAddress)
	return nil
}
