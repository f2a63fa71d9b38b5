// SPDX-License-Identifier: MIT
package stream

import (
	"context"
	"time"

	"eeg/internal/log"
	"eeg/pkg/utils"
)

// Simulate pushes chunkLen rows from gen to outlet at the outlet's nominal
// rate until ctx is done. Timestamps are seconds since the first sample.
func Simulate(ctx context.Context, outlet *Outlet, gen *utils.Generator, chunkLen int) error {
	info := outlet.Info()
	if chunkLen <= 0 {
		chunkLen = 12
	}
	period := time.Duration(float64(chunkLen) / info.NominalSrate * float64(time.Second))
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	log.Infof("Stream: Simulating %q, %d rows every %v", info.Name, chunkLen, period)
	var sent int
	for {
		select {
		case <-ctx.Done():
			log.Infof("Stream: Simulation stopped after %d rows", sent)
			return nil
		case <-ticker.C:
			rows := gen.Next(chunkLen)
			ts := make([]float64, len(rows))
			for i := range ts {
				ts[i] = float64(sent+i) / info.NominalSrate
			}
			if err := outlet.Push(ctx, Chunk{Samples: rows, Timestamps: ts}); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			sent += len(rows)
		}
	}
}
