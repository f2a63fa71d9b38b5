// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"testing"
)

var (
	origName    string
	origTime    string
	origCommit  string
	origVersion string
	origFlags   ldFlags
)

func TestMain(m *testing.M) {
	origName = buildName
	origTime = buildTime
	origCommit = buildCommit
	origVersion = buildVersion
	origFlags = *buildFlags

	exitCode := m.Run()

	buildName = origName
	buildTime = origTime
	buildCommit = origCommit
	buildVersion = origVersion
	*buildFlags = origFlags

	os.Exit(exitCode)
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		wantErrMsg  string
	}{
		{"Missing BuildName", "", "2026-03-01", "abcdef123", "v0.3.0", "BuildName is required"},
		{"Missing BuildCommit", "eeg", "2026-03-01", "", "v0.3.0", "BuildCommit is required"},
		{"Missing several", "eeg", "", "", "", "BuildTime, BuildCommit, BuildVersion are required"},
		{"Success Case", "eeg", "2026-03-01", "abcdef123", "v0.3.0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buildFlags = &ldFlags{Name: "eeg", Time: "unknown", Commit: "unknown", Version: "dev"}

			buildName = tt.buildName
			buildTime = tt.buildTime
			buildCommit = tt.buildCommit
			buildVersion = tt.buildVer

			err := Initialize()

			if tt.wantErrMsg != "" {
				if err == nil {
					t.Fatalf("Initialize() expected error, got nil")
				}
				if err.Error() != tt.wantErrMsg {
					t.Errorf("Initialize() error = %v, want %v", err, tt.wantErrMsg)
				}
				if buildFlags.Version != "dev" {
					t.Errorf("defaults overwritten on error: %+v", buildFlags)
				}
				return
			}

			if err != nil {
				t.Fatalf("Initialize() unexpected error: %v", err)
			}
			if buildFlags.Name != tt.buildName || buildFlags.Time != tt.buildTime ||
				buildFlags.Commit != tt.buildCommit || buildFlags.Version != tt.buildVer {
				t.Errorf("buildFlags = %+v", buildFlags)
			}
		})
	}
}

func TestString(t *testing.T) {
	f := &ldFlags{Name: "eeg", Time: "2026-03-01", Commit: "0123456789abcdef", Version: "v0.3.0"}
	want := "eeg v0.3.0 (commit 0123456789ab, built 2026-03-01)"
	if got := f.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	buildFlags = f
	if GetBuildFlags() != f {
		t.Errorf("GetBuildFlags() did not return the current flags")
	}
}
