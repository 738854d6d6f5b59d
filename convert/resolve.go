package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// resolveArtifact scans dir's immediate entries for the first regular file
// with a .pdf extension and returns its path and basename. The engine
// chooses its own output basename, so discovery goes by extension, not by
// predicted name. Iteration order is filesystem-dependent; a workspace is
// expected to hold at most one artifact, so first match wins.
func resolveArtifact(dir string) (path, name string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrNoArtifact, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			return filepath.Join(dir, e.Name()), e.Name(), nil
		}
	}
	return "", "", ErrNoArtifact
}
