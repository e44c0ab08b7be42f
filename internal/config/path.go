package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves a leading ~ to the home directory and substitutes
// $VAR references. When the home directory is unknown the ~ is kept.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if rest, ok := strings.CutPrefix(path, "~"); ok && (rest == "" || rest[0] == '/') {
		if home, err := os.UserHomeDir(); err == nil {
			path = home + rest
		}
	}
	return filepath.Clean(os.ExpandEnv(path))
}

// DefaultDir holds config.yaml, the ledger and generated credentials.
func DefaultDir() string {
	if dir := os.Getenv("SPICE_HOME"); dir != "" {
		return ExpandPath(dir)
	}
	return ExpandPath("~/.config/spice")
}
