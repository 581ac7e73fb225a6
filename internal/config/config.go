package config

import (
	"path/filepath"

	"github.com/mvp-joe/jarmeta/internal/discovery"
	"github.com/mvp-joe/jarmeta/internal/metadata"
)

// Config represents the complete jarmeta configuration.
// It can be loaded from .jarmeta/config.yml with environment variable overrides.
type Config struct {
	Paths   PathsConfig   `yaml:"paths" mapstructure:"paths"`
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	Watch   WatchConfig   `yaml:"watch" mapstructure:"watch"`
}

// PathsConfig locates the inputs and the output of a run.
type PathsConfig struct {
	Primary   string `yaml:"primary" mapstructure:"primary"`     // primary archive, e.g. client.jar
	Libraries string `yaml:"libraries" mapstructure:"libraries"` // directory searched for library archives
	Output    string `yaml:"output" mapstructure:"output"`       // dataset file, "-" for stdout
}

// ExtractConfig tunes the pipeline.
type ExtractConfig struct {
	TargetVersion   string   `yaml:"target_version" mapstructure:"target_version"`     // version of the described artifact
	SpecVersion     string   `yaml:"spec_version" mapstructure:"spec_version"`         // dataset format version
	LibraryPatterns []string `yaml:"library_patterns" mapstructure:"library_patterns"` // glob patterns for library archives
	LibraryIgnore   []string `yaml:"library_ignore" mapstructure:"library_ignore"`     // glob patterns to skip
	Workers         int      `yaml:"workers" mapstructure:"workers"`                   // library archives parsed at once
}

// CacheConfig bounds the in-memory library archive cache used by watch mode.
type CacheConfig struct {
	MaxArchives int `yaml:"max_archives" mapstructure:"max_archives"`
}

// CatalogConfig controls the SQLite catalog of produced datasets.
type CatalogConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// WatchConfig controls extract --watch.
type WatchConfig struct {
	DebounceMs int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Output: filepath.Join("build", "extract", "metadata.json"),
		},
		Extract: ExtractConfig{
			SpecVersion:     metadata.DefaultSpecVersion.String(),
			LibraryPatterns: append([]string(nil), discovery.DefaultPatterns...),
			LibraryIgnore:   []string{},
			Workers:         4,
		},
		Cache: CacheConfig{
			MaxArchives: 256,
		},
		Catalog: CatalogConfig{
			Enabled: false,
			Path:    filepath.Join(".jarmeta", "catalog.db"),
		},
		Watch: WatchConfig{
			DebounceMs: 500,
		},
	}
}

// Resolve makes relative paths absolute against rootDir. The "-" output is
// left alone.
func (c *Config) Resolve(rootDir string) {
	abs := func(p string) string {
		if p == "" || p == "-" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(rootDir, p)
	}
	c.Paths.Primary = abs(c.Paths.Primary)
	c.Paths.Libraries = abs(c.Paths.Libraries)
	c.Paths.Output = abs(c.Paths.Output)
	c.Catalog.Path = abs(c.Catalog.Path)
}
