// SPDX-License-Identifier: MIT
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"eeg/internal/log"

	"golang.org/x/term"
)

// startPrompt waits for ENTER when stdin is a terminal. Otherwise streaming
// starts immediately.
func startPrompt(in io.Reader, out io.Writer) func(ctx context.Context) error {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return func(context.Context) error {
			log.Infof("Record: stdin is not a terminal, starting immediately")
			return nil
		}
	}
	return func(ctx context.Context) error {
		return waitForEnter(ctx, in, out)
	}
}

func waitForEnter(ctx context.Context, in io.Reader, out io.Writer) error {
	fmt.Fprint(out, "Stream connected. Press ENTER to start recording (Ctrl+C to stop)...")

	read := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(in).ReadString('\n')
		read <- err
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(out)
		return ctx.Err()
	case err := <-read:
		if err != nil && err != io.EOF {
			return err
		}
		return nil
	}
}
