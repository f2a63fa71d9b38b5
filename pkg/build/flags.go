// SPDX-License-Identifier: MIT
//
// Package build carries the metadata stamped into the binary at link time:
//
//	go build -ldflags "-X eeg/pkg/build.buildName=eeg -X eeg/pkg/build.buildVersion=0.3.0 ..."
package build

import (
	"fmt"
	"strings"
)

// Description is the one-line summary shown by the CLI.
const Description = "Capture EEG band power to CSV sessions and classify them"

type ldFlags struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:    "eeg",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
)

// Initialize copies the linker-provided values into the build flags. Every
// value is required; on error the development defaults stay in place.
func Initialize() error {
	var missing []string
	if buildName == "" {
		missing = append(missing, "BuildName")
	}
	if buildTime == "" {
		missing = append(missing, "BuildTime")
	}
	if buildCommit == "" {
		missing = append(missing, "BuildCommit")
	}
	if buildVersion == "" {
		missing = append(missing, "BuildVersion")
	}
	switch len(missing) {
	case 0:
	case 1:
		return fmt.Errorf("%s is required", missing[0])
	default:
		return fmt.Errorf("%s are required", strings.Join(missing, ", "))
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}

// String renders the version line printed by --version.
func (f *ldFlags) String() string {
	commit := f.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, commit, f.Time)
}
