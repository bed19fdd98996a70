// Package workspace locates the project root a Volition invocation operates
// against: the nearest ancestor directory (starting from the working
// directory and walking upward) that contains the named configuration file.
// Both the history store (§4.6) and configuration loader (§4.7) need this
// same walk, so it lives in one place rather than being duplicated.
package workspace

import (
	"os"
	"path/filepath"
)

// FindRoot walks upward from startDir looking for a directory containing
// markerFile. If none is found by the time it reaches the filesystem root,
// startDir itself is returned unchanged — an absent config file is not an
// error at this layer, only to whatever reads it next.
func FindRoot(startDir, markerFile string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, markerFile)
		if _, err := os.Stat(candidate); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir, nil
		}
		dir = parent
	}
}
