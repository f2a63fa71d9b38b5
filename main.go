// SPDX-License-Identifier: MIT
package main

import (
	"os"

	"eeg/cmd"
	"eeg/internal/log"
	"eeg/pkg/build"
)

func main() {
	// Development builds run without linker flags.
	if err := build.Initialize(); err != nil {
		log.Debugf("Build: %v; using development build info", err)
	}

	os.Exit(cmd.Execute(os.Args[1:]))
}
