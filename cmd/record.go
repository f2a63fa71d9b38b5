// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"eeg/internal/acquisition"
	"eeg/internal/broker"
	"eeg/internal/capture"
	"eeg/internal/config"
	"eeg/internal/dsp"
	"eeg/internal/log"
	"eeg/internal/mqttconn"
	"eeg/internal/stream"

	"github.com/spf13/cobra"
)

func newRecordCmd(opts *options) *cobra.Command {
	var (
		noCapture bool
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Capture a session and append band-power rows to a new CSV artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *opts.cfg
			if noCapture {
				cfg.Capture.Enabled = false
			}
			if outputDir != "" {
				cfg.Session.OutputDir = outputDir
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return record(ctx, opts, &cfg)
		},
	}
	cmd.Flags().BoolVar(&noCapture, "no-capture", false, "Do not launch the capture bridge; use a stream that is already running")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for the session artifact")
	return cmd
}

func record(ctx context.Context, opts *options, cfg *config.Config) error {
	if cfg.Stream.EmbeddedBroker {
		b, err := broker.Start(cfg.Stream.BrokerAddress)
		if err != nil {
			return err
		}
		defer b.Close()
	}

	client, err := mqttconn.Dial(ctx, mqttconn.Options{Address: cfg.Stream.BrokerAddress})
	if err != nil {
		return fmt.Errorf("connect to stream broker: %w", err)
	}
	defer client.Close()

	window, err := dsp.ParseWindowFunc(cfg.Acquisition.Window)
	if err != nil {
		log.Warnf("Record: %v; using %s", err, window)
	}

	tr, err := newTelemetry(cfg.Transport, client)
	if err != nil {
		return err
	}
	defer tr.Close()

	deps := acquisition.Dependencies{
		Resolver:    stream.NewMQTTResolver(client, cfg.Stream.Prefix),
		Extractor:   dsp.NewBandPowerExtractor(window),
		NewFilter:   notchFactory(cfg.Acquisition),
		StartSignal: startPrompt(opts.stdin, opts.stdout),
		Transport:   tr,
		OnState: func(s acquisition.State) {
			log.Debugf("Record: State %s", s)
		},
	}
	if cfg.Capture.Enabled {
		deps.Launch = func() (acquisition.Process, error) {
			p, err := capture.Launch(capture.DefaultExecutor, cfg.Capture.Command, cfg.Capture.Args...)
			if err != nil {
				return nil, err
			}
			return p, nil
		}
	}

	orch, err := acquisition.New(acquisition.Settings{
		Acquisition:    cfg.Acquisition,
		StreamType:     cfg.Stream.Type,
		WarmUp:         cfg.Capture.WarmUp,
		ResolveTimeout: cfg.Stream.ResolveTimeout,
		StopTimeout:    cfg.Capture.StopTimeout,
		OutputDir:      cfg.Session.OutputDir,
	}, deps)
	if err != nil {
		return err
	}

	res, err := orch.Run(ctx)
	if res != nil && res.ArtifactPath != "" {
		fmt.Fprintf(opts.stdout, "\nSession saved to %s (%d rows)\n", res.ArtifactPath, res.Rows)
	}
	return err
}

// notchFactory builds the mains filter once the stream's sample rate is known.
func notchFactory(a config.AcquisitionConfig) func(channels int, fs float64) (dsp.Filter, error) {
	if !a.NotchEnabled {
		return nil
	}
	return func(channels int, fs float64) (dsp.Filter, error) {
		f, err := dsp.NewNotchFilter(channels, fs, a.NotchHz, a.NotchQ)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
}
