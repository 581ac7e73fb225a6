package codetree

import (
	"context"
	"sort"

	"github.com/mvp-joe/jarmeta/internal/classfile"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the number of library archives parsed at once.
const DefaultWorkers = 4

// LibraryProgress is notified as library archives finish parsing.
// OnLibraryLoaded is called from worker goroutines.
type LibraryProgress interface {
	OnLibraryLoaded(path string, classes int)
}

// LibraryOptions tunes LoadLibraries.
type LibraryOptions struct {
	Workers  int
	Progress LibraryProgress
}

// LoadLibraries parses the given library archives concurrently and registers
// them with OriginLibrary in sorted path order, so precedence between libraries
// never depends on scheduling. Any failure aborts before anything is registered.
func (t *Tree) LoadLibraries(ctx context.Context, paths []string, opts LibraryOptions) error {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	results := make([][]*classfile.ClassInfo, len(sorted))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range sorted {
		g.Go(func() error {
			classes, _, err := t.readArchive(gctx, path, OriginLibrary)
			if err != nil {
				return err
			}
			results[i] = classes
			if opts.Progress != nil {
				opts.Progress.OnLibraryLoaded(path, len(classes))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// single writer
	for i, path := range sorted {
		t.register(path, OriginLibrary, results[i])
	}
	return nil
}
