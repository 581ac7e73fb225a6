package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/mvp-joe/jarmeta/internal/metadata"
)

var (
	// ErrInvalidSpecVersion indicates a spec_version that is not major.minor.patch
	ErrInvalidSpecVersion = errors.New("invalid spec version")

	// ErrInvalidPattern indicates a library glob pattern that does not compile
	ErrInvalidPattern = errors.New("invalid library pattern")

	// ErrInvalidWorkers indicates a non-positive worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrEmptyOutput indicates a missing output path
	ErrEmptyOutput = errors.New("empty output path")

	// ErrInvalidCacheSettings indicates invalid cache configuration
	ErrInvalidCacheSettings = errors.New("invalid cache settings")

	// ErrEmptyCatalogPath indicates an enabled catalog without a path
	ErrEmptyCatalogPath = errors.New("empty catalog path")

	// ErrInvalidDebounce indicates a negative watch debounce
	ErrInvalidDebounce = errors.New("invalid watch debounce")
)

// Validate checks that the configuration is valid and complete.
// The primary archive and target version may still come from CLI flags, so
// they are checked when a run starts rather than here.
func Validate(cfg *Config) error {
	var errs []error

	if err := validatePaths(&cfg.Paths); err != nil {
		errs = append(errs, err)
	}

	if err := validateExtract(&cfg.Extract); err != nil {
		errs = append(errs, err)
	}

	if cfg.Cache.MaxArchives < 0 {
		errs = append(errs, fmt.Errorf("%w: max_archives cannot be negative, got %d", ErrInvalidCacheSettings, cfg.Cache.MaxArchives))
	}

	if cfg.Catalog.Enabled && strings.TrimSpace(cfg.Catalog.Path) == "" {
		errs = append(errs, fmt.Errorf("%w: catalog.path is required when the catalog is enabled", ErrEmptyCatalogPath))
	}

	if cfg.Watch.DebounceMs < 0 {
		errs = append(errs, fmt.Errorf("%w: debounce_ms cannot be negative, got %d", ErrInvalidDebounce, cfg.Watch.DebounceMs))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validatePaths(cfg *PathsConfig) error {
	if strings.TrimSpace(cfg.Output) == "" {
		return fmt.Errorf("%w: output is required (use \"-\" for stdout)", ErrEmptyOutput)
	}
	return nil
}

func validateExtract(cfg *ExtractConfig) error {
	var errs []error

	if _, err := metadata.ParseSimpleVersion(cfg.SpecVersion); err != nil {
		errs = append(errs, fmt.Errorf("%w: spec_version must be major.minor.patch, got '%s'", ErrInvalidSpecVersion, cfg.SpecVersion))
	}

	for _, pattern := range append(append([]string(nil), cfg.LibraryPatterns...), cfg.LibraryIgnore...) {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: '%s': %v", ErrInvalidPattern, pattern, err))
		}
	}

	if cfg.Workers <= 0 {
		errs = append(errs, fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidWorkers, cfg.Workers))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// validationError combines multiple errors with clear formatting and keeps
// each of them reachable through errors.Is and errors.As.
type validationError struct {
	errs []error
}

func (e *validationError) Error() string {
	var msgs []string
	for _, err := range e.errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (e *validationError) Unwrap() []error { return e.errs }

// joinErrors combines multiple errors into a single error. Nested
// validation errors are flattened into one list.
func joinErrors(errs []error) error {
	var flat []error
	for _, err := range errs {
		var ve *validationError
		if errors.As(err, &ve) {
			flat = append(flat, ve.errs...)
			continue
		}
		flat = append(flat, err)
	}

	if len(flat) == 0 {
		return nil
	}

	if len(flat) == 1 {
		return flat[0]
	}

	return &validationError{errs: flat}
}
