// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eeg/internal/broker"
	"eeg/internal/log"
	"eeg/internal/mqttconn"
	"eeg/internal/stream"
	"eeg/pkg/utils"

	"github.com/spf13/cobra"
)

func newSimulateCmd(opts *options) *cobra.Command {
	var (
		alpha    float64
		beta     float64
		mains    float64
		noise    float64
		chunkLen int
		seed     uint64
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Publish a synthetic EEG stream for testing record without a headset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg.Stream

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.EmbeddedBroker {
				b, err := broker.Start(cfg.BrokerAddress)
				if err != nil {
					return err
				}
				defer b.Close()
			}

			client, err := mqttconn.Dial(ctx, mqttconn.Options{Address: cfg.BrokerAddress})
			if err != nil {
				return err
			}
			defer client.Close()

			outlet, err := stream.NewOutlet(ctx, client, cfg.Prefix, stream.Info{
				Name:         cfg.SimulatedName,
				Type:         cfg.Type,
				ChannelCount: cfg.SimulatedChannels,
				NominalSrate: cfg.SimulatedRate,
				SourceID:     "simulator",
			})
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := outlet.Close(closeCtx); err != nil {
					log.Warnf("Simulate: Closing outlet: %v", err)
				}
			}()

			gen := utils.NewGenerator(cfg.SimulatedRate, cfg.SimulatedChannels, seed,
				utils.Rhythm{Frequency: 10, Amplitude: alpha},
				utils.Rhythm{Frequency: 20, Amplitude: beta},
			)
			gen.Mains = utils.Rhythm{Frequency: opts.cfg.Acquisition.NotchHz, Amplitude: mains}
			gen.Noise = noise

			return stream.Simulate(ctx, outlet, gen, chunkLen)
		},
	}
	cmd.Flags().Float64Var(&alpha, "alpha", 20, "Alpha (10 Hz) amplitude in microvolts")
	cmd.Flags().Float64Var(&beta, "beta", 8, "Beta (20 Hz) amplitude in microvolts")
	cmd.Flags().Float64Var(&mains, "mains", 5, "Mains hum amplitude in microvolts")
	cmd.Flags().Float64Var(&noise, "noise", 2, "Gaussian noise standard deviation")
	cmd.Flags().IntVar(&chunkLen, "chunk", 12, "Rows per published chunk")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "Noise seed")
	return cmd
}
