// SPDX-License-Identifier: MIT
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// FileName returns the artifact name for a session started at t.
func FileName(t time.Time) string {
	return "eeg_session_" + t.Format(fileLayout) + ".csv"
}

// Info describes an artifact found on disk.
type Info struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// List returns the artifacts in dir, newest first.
func List(dir string) ([]Info, error) {
	matches, err := filepath.Glob(filepath.Join(dir, Pattern))
	if err != nil {
		return nil, fmt.Errorf("artifact: list %s: %w", dir, err)
	}
	infos := make([]Info, 0, len(matches))
	for _, m := range matches {
		st, err := os.Stat(m)
		if err != nil || !st.Mode().IsRegular() {
			continue
		}
		infos = append(infos, Info{Path: m, Name: st.Name(), Size: st.Size(), ModTime: st.ModTime()})
	}
	slices.SortFunc(infos, func(a, b Info) int {
		if c := b.ModTime.Compare(a.ModTime); c != 0 {
			return c
		}
		return strings.Compare(b.Name, a.Name)
	})
	return infos, nil
}

// Latest returns the path of the newest artifact in dir.
func Latest(dir string) (string, error) {
	infos, err := List(dir)
	if err != nil {
		return "", err
	}
	if len(infos) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoArtifacts, dir)
	}
	return infos[0].Path, nil
}
