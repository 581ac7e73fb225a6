// Package extract runs the extraction pipeline: load the primary and library
// archives, pick the primary classes, normalize and convert them, rebuild the
// class hierarchy and assemble the versioned dataset.
//
// A run either returns a complete dataset or an error. Nothing partial is
// ever returned.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mvp-joe/jarmeta/internal/classfile"
	"github.com/mvp-joe/jarmeta/internal/cleaner"
	"github.com/mvp-joe/jarmeta/internal/codetree"
	"github.com/mvp-joe/jarmeta/internal/converter"
	"github.com/mvp-joe/jarmeta/internal/discovery"
	"github.com/mvp-joe/jarmeta/internal/hierarchy"
	"github.com/mvp-joe/jarmeta/internal/metadata"
)

var (
	// ErrMissingRecord means the symbol space reported a primary class it has
	// no record for. It indicates a bug, not bad input.
	ErrMissingRecord = errors.New("missing structural record")

	// ErrNoPrimary is returned when no primary archive is configured.
	ErrNoPrimary = errors.New("primary archive is required")
)

// Request describes one extraction run.
type Request struct {
	PrimaryPath string

	// LibraryDir is searched recursively for library archives. Empty means no
	// libraries.
	LibraryDir      string
	LibraryPatterns []string
	LibraryIgnore   []string

	TargetVersion string
	SpecVersion   metadata.SimpleVersion // zero value means metadata.DefaultSpecVersion
}

// Stats summarizes a successful run.
type Stats struct {
	Archives       int
	PrimaryClasses int
	LibraryClasses int
	Shadowed       int
	Roots          int
	Nested         int
	Duration       time.Duration
}

// Result is the output of a successful run.
type Result struct {
	Dataset   *metadata.SourceMetadataSet
	Libraries []string // discovered library archives, sorted
	Stats     Stats

	// PrimarySHA256 is the hex digest of the primary archive bytes the
	// dataset was extracted from.
	PrimarySHA256 string
}

// Extractor runs extractions. It is safe to reuse across runs; a configured
// cache then carries parsed library archives from one run to the next.
type Extractor struct {
	cache    codetree.ArchiveCache
	progress ProgressReporter
	workers  int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithCache reuses parsed library archives across runs.
func WithCache(c codetree.ArchiveCache) Option {
	return func(e *Extractor) {
		e.cache = c
	}
}

// WithProgress sets the progress reporter.
func WithProgress(p ProgressReporter) Option {
	return func(e *Extractor) {
		if p != nil {
			e.progress = p
		}
	}
}

// WithWorkers bounds how many library archives are parsed at once.
func WithWorkers(n int) Option {
	return func(e *Extractor) {
		e.workers = n
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		progress: &NoOpProgressReporter{},
		workers:  codetree.DefaultWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs the pipeline for req. The target version is checked before any
// archive is touched.
func (e *Extractor) Extract(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	if strings.TrimSpace(req.TargetVersion) == "" {
		return nil, metadata.ErrMissingVersion
	}
	if req.PrimaryPath == "" {
		return nil, ErrNoPrimary
	}
	spec := req.SpecVersion
	if spec == (metadata.SimpleVersion{}) {
		spec = metadata.DefaultSpecVersion
	}

	// Discover
	e.progress.OnStageStart(StageDiscover)
	var libraries []string
	if req.LibraryDir != "" {
		var err error
		libraries, err = discovery.Discover(req.LibraryDir, req.LibraryPatterns, req.LibraryIgnore)
		if err != nil {
			return nil, err
		}
	}

	// Load: primary first so it wins every name it defines
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.progress.OnStageStart(StageLoad)
	tree := codetree.New(codetree.WithCache(e.cache))
	if err := tree.Load(ctx, req.PrimaryPath, codetree.OriginPrimary); err != nil {
		return nil, err
	}
	e.progress.OnLibrariesStart(len(libraries))
	if err := tree.LoadLibraries(ctx, libraries, codetree.LibraryOptions{Workers: e.workers, Progress: e.progress}); err != nil {
		return nil, err
	}

	// Classify + extract
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.progress.OnStageStart(StageClassify)
	names := tree.PrimaryClassNames()
	records, err := extractRecords(tree, names)
	if err != nil {
		return nil, err
	}

	// Normalize
	e.progress.OnStageStart(StageNormalize)
	c := cleaner.New(tree)
	for _, info := range records {
		c.Clean(info)
	}

	// Convert
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.progress.OnStageStart(StageConvert)
	e.progress.OnClassesStart(len(records))
	flat := make([]metadata.ClassMetadata, 0, len(records))
	for _, info := range records {
		meta, err := converter.Convert(info)
		if err != nil {
			return nil, err
		}
		flat = append(flat, meta)
		e.progress.OnClassProcessed(info.Name)
	}

	// Reassemble
	e.progress.OnStageStart(StageReassemble)
	roots, err := hierarchy.Reassemble(flat)
	if err != nil {
		return nil, err
	}

	// Assemble
	e.progress.OnStageStart(StageAssemble)
	dataset, err := metadata.Assemble(spec, req.TargetVersion, roots)
	if err != nil {
		return nil, err
	}

	loaded := tree.Stats()
	stats := Stats{
		Archives:       loaded.Archives,
		PrimaryClasses: loaded.PrimaryClasses,
		LibraryClasses: loaded.LibraryClasses,
		Shadowed:       loaded.Shadowed,
		Roots:          dataset.Roots(),
		Nested:         dataset.Count() - dataset.Roots(),
		Duration:       time.Since(start),
	}
	e.progress.OnComplete(&stats)

	digest, _ := tree.Digest(req.PrimaryPath)
	return &Result{Dataset: dataset, Libraries: libraries, Stats: stats, PrimarySHA256: digest}, nil
}

// extractRecords pulls the structural record of every primary name.
func extractRecords(r cleaner.Resolver, names []string) ([]*classfile.ClassInfo, error) {
	records := make([]*classfile.ClassInfo, 0, len(names))
	for _, name := range names {
		info, ok := r.ClassInfo(name)
		if !ok || info == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingRecord, name)
		}
		records = append(records, info)
	}
	return records, nil
}
