package config

import (
	"os"
	"path/filepath"
)

const (
	// projectConfigDir is the per-repository config directory.
	projectConfigDir = ".tracklog"
	// configFileName is the config file name in either location.
	configFileName = "config.yml"
)

// ProjectConfigPath returns the project-level config path relative to
// the working directory.
func ProjectConfigPath() string {
	return filepath.Join(projectConfigDir, configFileName)
}

// UserConfigPath returns the XDG-style user-level config path.
func UserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "tracklog", configFileName), nil
}
