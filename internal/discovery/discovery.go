// Package discovery finds library archives under a directory.
package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultPatterns matches every jar at any depth.
var DefaultPatterns = []string{"**/*.jar"}

// ErrDiscovery wraps failures while walking the library directory.
var ErrDiscovery = errors.New("library discovery failed")

// compiledPattern holds the pattern string and its compiled glob. root is the
// pattern without a leading "**/", used for files directly in the root.
type compiledPattern struct {
	pattern string
	glob    glob.Glob
	root    glob.Glob
}

// LibraryDiscovery walks a directory for archives matching glob patterns.
type LibraryDiscovery struct {
	rootDir        string
	patterns       []compiledPattern
	ignorePatterns []compiledPattern
}

// New creates a LibraryDiscovery for rootDir. Empty patterns fall back to
// DefaultPatterns.
func New(rootDir string, patterns, ignorePatterns []string) (*LibraryDiscovery, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	ld := &LibraryDiscovery{rootDir: rootDir}

	var err error
	if ld.patterns, err = compile(patterns); err != nil {
		return nil, err
	}
	if ld.ignorePatterns, err = compile(ignorePatterns); err != nil {
		return nil, err
	}
	return ld, nil
}

func compile(patterns []string) ([]compiledPattern, error) {
	var out []compiledPattern
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		cp := compiledPattern{pattern: pattern, glob: g}
		if simplified, ok := strings.CutPrefix(pattern, "**/"); ok {
			if rg, err := glob.Compile(simplified, '/'); err == nil {
				cp.root = rg
			}
		}
		out = append(out, cp)
	}
	return out, nil
}

// Discover returns every regular file under the root that matches a pattern and
// no ignore pattern, sorted by path. A missing root is an error.
func (ld *LibraryDiscovery) Discover() ([]string, error) {
	files := []string{}

	err := filepath.WalkDir(ld.rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(ld.rootDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if matchesAny(relPath, ld.ignorePatterns) {
			return nil
		}
		if matchesAny(relPath, ld.patterns) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDiscovery, ld.rootDir, err)
	}

	sort.Strings(files)
	return files, nil
}

// matchesAny checks if a path matches any of the given patterns.
// Files in the root also match patterns with a leading "**/", so "**/*.jar"
// covers both "a.jar" and "libs/a.jar".
func matchesAny(path string, patterns []compiledPattern) bool {
	topLevel := !strings.Contains(path, "/")
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
		if topLevel && cp.root != nil && cp.root.Match(path) {
			return true
		}
	}
	return false
}

// Discover is a shorthand for New followed by Discover.
func Discover(rootDir string, patterns, ignorePatterns []string) ([]string, error) {
	ld, err := New(rootDir, patterns, ignorePatterns)
	if err != nil {
		return nil, err
	}
	return ld.Discover()
}
