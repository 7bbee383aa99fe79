package trust

import (
	"os"
	"path/filepath"
	"strings"
)

// Normalize resolves user-home shorthand and collapses relative segments so
// textually different spellings of the same location compare equal.
// Relative inputs are anchored at the process working directory.
func Normalize(path string) string {
	path = expandHome(path)
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
