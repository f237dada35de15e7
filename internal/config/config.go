// Package config provides hierarchical configuration management for
// tracklog using koanf. Configuration is loaded with priority:
// environment variables > project config (.tracklog/config.yml) >
// user config (~/.config/tracklog/config.yml) > defaults. Files may be
// YAML or JSON, chosen by extension. The category taxonomy and ticket
// pattern are validated at load time so bad mappings are reported
// before any network call.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// LoadOptions configures how configuration is loaded.
type LoadOptions struct {
	// ProjectConfigPath overrides the project config path
	// (default: .tracklog/config.yml).
	ProjectConfigPath string
	// SkipUserConfig disables the user-level config file (tests).
	SkipUserConfig bool
}

// Load loads configuration using default options.
func Load() (*Configuration, error) {
	return LoadWithOptions(LoadOptions{})
}

// LoadWithOptions loads configuration from defaults, the user and
// project config files, and TRACKLOG_* environment variables, then
// validates the result.
func LoadWithOptions(opts LoadOptions) (*Configuration, error) {
	k := koanf.New(".")

	for key, value := range GetDefaults() {
		k.Set(key, value)
	}

	if !opts.SkipUserConfig {
		if userPath, err := UserConfigPath(); err == nil && fileExists(userPath) {
			if err := loadFileConfig(k, userPath, "user"); err != nil {
				return nil, err
			}
		}
	}

	projectPath := ProjectConfigPath()
	if opts.ProjectConfigPath != "" {
		projectPath = opts.ProjectConfigPath
		if !fileExists(projectPath) {
			return nil, fmt.Errorf("config file not found: %s", projectPath)
		}
	}
	if fileExists(projectPath) {
		if err := loadFileConfig(k, projectPath, "project"); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("TRACKLOG_", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	return finalizeConfig(k)
}

// loadFileConfig loads one config file, choosing the parser by
// extension. YAML files get a syntax pre-check for better errors.
func loadFileConfig(k *koanf.Koanf, path, configType string) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return fmt.Errorf("failed to load %s config %s: %w", configType, path, err)
		}
		return nil
	}

	if err := ValidateYAMLSyntax(path); err != nil {
		return fmt.Errorf("validating YAML syntax for %s config: %w", configType, err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load %s config %s: %w", configType, path, err)
	}
	return nil
}

// finalizeConfig unmarshals, applies structural defaults, and
// validates.
func finalizeConfig(k *koanf.Koanf) (*Configuration, error) {
	var cfg Configuration
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(cfg.Categories) == 0 {
		cfg.Categories = DefaultCategories()
	}

	if err := ValidateConfigValues(&cfg, "config"); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// fileExists returns true if the file exists and is readable.
func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// envTransform converts environment variable names to config keys.
// A double underscore separates nesting levels:
// TRACKLOG_JIRA__TICKET_PATTERN -> jira.ticket_pattern
func envTransform(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, "TRACKLOG_"))
	return strings.ReplaceAll(key, "__", ".")
}
