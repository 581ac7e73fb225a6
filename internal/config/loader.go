package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. JARMETA_EXTRACT_WORKERS.
const EnvPrefix = "JARMETA"

// Dir is the per-project configuration directory.
const Dir = ".jarmeta"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → .env file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// keys lists every configuration key that can be overridden from the environment.
var keys = []string{
	"paths.primary",
	"paths.libraries",
	"paths.output",
	"extract.target_version",
	"extract.spec_version",
	"extract.library_patterns",
	"extract.library_ignore",
	"extract.workers",
	"cache.max_archives",
	"catalog.enabled",
	"catalog.path",
	"watch.debounce_ms",
}

// envName returns the environment variable for a configuration key.
func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (JARMETA_*)
// 2. .jarmeta/.env
// 3. Config file (.jarmeta/config.yml or .jarmeta/config.yaml)
// 4. Default values
//
// The .env file never modifies the process environment.
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, Dir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., JARMETA_PATHS_PRIMARY)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range keys {
		v.BindEnv(key)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := applyDotEnv(v, filepath.Join(configDir, ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyDotEnv layers JARMETA_* entries of a .env file over the config file.
// Variables already present in the process environment keep precedence.
func applyDotEnv(v *viper.Viper, path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	for _, key := range keys {
		name := envName(key)
		value, ok := values[name]
		if !ok {
			continue
		}
		if _, set := os.LookupEnv(name); set {
			continue
		}
		v.Set(key, value)
	}
	return nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	// Paths defaults
	v.SetDefault("paths.primary", defaults.Paths.Primary)
	v.SetDefault("paths.libraries", defaults.Paths.Libraries)
	v.SetDefault("paths.output", defaults.Paths.Output)

	// Extract defaults
	v.SetDefault("extract.target_version", defaults.Extract.TargetVersion)
	v.SetDefault("extract.spec_version", defaults.Extract.SpecVersion)
	v.SetDefault("extract.library_patterns", defaults.Extract.LibraryPatterns)
	v.SetDefault("extract.library_ignore", defaults.Extract.LibraryIgnore)
	v.SetDefault("extract.workers", defaults.Extract.Workers)

	// Cache defaults
	v.SetDefault("cache.max_archives", defaults.Cache.MaxArchives)

	// Catalog defaults
	v.SetDefault("catalog.enabled", defaults.Catalog.Enabled)
	v.SetDefault("catalog.path", defaults.Catalog.Path)

	// Watch defaults
	v.SetDefault("watch.debounce_ms", defaults.Watch.DebounceMs)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
