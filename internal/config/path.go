// Package config loads hearth's settings from the config file, HEARTH_* variables
// and defaults through viper, and validates each component's section.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands a leading ~ and any $VAR references in path.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return os.ExpandEnv(path)
}

// DataPath returns name inside hearth's data directory: $XDG_DATA_HOME/hearth when
// that is set, ~/.local/share/hearth otherwise. The result may still start with ~.
func DataPath(name string) string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "hearth", name)
	}
	return "~/.local/share/hearth/" + name
}
