package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mvp-joe/jarmeta/internal/catalog"
	"github.com/mvp-joe/jarmeta/internal/codetree"
	"github.com/mvp-joe/jarmeta/internal/config"
	"github.com/mvp-joe/jarmeta/internal/extract"
	"github.com/mvp-joe/jarmeta/internal/metadata"
	"github.com/mvp-joe/jarmeta/internal/output"
	"github.com/mvp-joe/jarmeta/internal/watcher"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract class metadata from a primary jar",
	Long: `Extract reads the primary jar and every library jar under the libraries
directory, then writes the class metadata dataset for the primary classes.

Library classes are only used to resolve super types and overridden methods;
they never appear in the output. A run either writes a complete dataset or
fails without touching the previous output.

Examples:
  # Extract using .jarmeta/config.yml
  jarmeta extract

  # Extract a specific jar to stdout
  jarmeta extract --primary versions/1.20.1/1.20.1.jar --libraries libraries \
    --target 1.20.1 --output -

  # Re-extract whenever the primary or a library jar changes
  jarmeta extract --watch
`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	defineExtractFlags(extractCmd.Flags())
}

// defineExtractFlags registers the extract flags on fs.
func defineExtractFlags(fs *pflag.FlagSet) {
	fs.StringP("primary", "p", "", "Primary jar (overrides paths.primary)")
	fs.StringP("libraries", "l", "", "Library directory (overrides paths.libraries)")
	fs.StringP("output", "o", "", `Output file, or "-" for stdout (overrides paths.output)`)
	fs.StringP("target", "t", "", "Target game version recorded in the dataset (overrides extract.target_version)")
	fs.String("spec-version", "", "Dataset spec version (overrides extract.spec_version)")
	fs.Int("workers", 0, "Library archives parsed concurrently (overrides extract.workers)")
	fs.BoolP("quiet", "q", false, "Disable progress bars and non-error output")
	fs.BoolP("watch", "w", false, "Watch the primary and library jars and re-extract on change")
}

func runExtract(cmd *cobra.Command, args []string) error {
	// Set up context with cancellation for Ctrl+C
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nInterrupted! Cancelling extraction...")
			cancel()
		case <-ctx.Done():
		}
	}()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyExtractFlags(cmd.Flags(), cfg); err != nil {
		return err
	}

	// Status output moves to stderr when the dataset goes to stdout
	status := io.Writer(os.Stdout)
	if cfg.Paths.Output == output.Stdout {
		status = os.Stderr
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	watch, _ := cmd.Flags().GetBool("watch")
	return executeExtract(ctx, cfg, extractOptions{
		quiet:   quiet,
		verbose: verbose,
		watch:   watch,
		stdout:  os.Stdout,
		status:  status,
	})
}

// applyExtractFlags overrides configuration with the flags that were set.
// Relative flag paths are resolved against the working directory.
func applyExtractFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	absPath := func(p string) (string, error) {
		if p == output.Stdout || p == "" {
			return p, nil
		}
		return filepath.Abs(p)
	}

	paths := []struct {
		flag string
		dest *string
	}{
		{"primary", &cfg.Paths.Primary},
		{"libraries", &cfg.Paths.Libraries},
		{"output", &cfg.Paths.Output},
	}
	for _, p := range paths {
		if !flags.Changed(p.flag) {
			continue
		}
		value, _ := flags.GetString(p.flag)
		abs, err := absPath(value)
		if err != nil {
			return fmt.Errorf("invalid --%s: %w", p.flag, err)
		}
		*p.dest = abs
	}

	if flags.Changed("target") {
		cfg.Extract.TargetVersion, _ = flags.GetString("target")
	}
	if flags.Changed("spec-version") {
		cfg.Extract.SpecVersion, _ = flags.GetString("spec-version")
	}
	if flags.Changed("workers") {
		cfg.Extract.Workers, _ = flags.GetInt("workers")
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

// extractOptions carries the command-line switches that are not configuration.
type extractOptions struct {
	quiet   bool
	verbose bool
	watch   bool
	stdout  io.Writer // receives the dataset when the output path is "-"
	status  io.Writer // receives progress and summaries

	// onRun, when set, is called after every run with its outcome.
	onRun func(err error)
}

// extractRun holds everything shared by the runs of one invocation.
type extractRun struct {
	cfg       *config.Config
	spec      metadata.SimpleVersion
	extractor *extract.Extractor
	catalog   *catalog.Catalog // nil when the catalog is disabled
	opts      extractOptions
}

// executeExtract runs one extraction, or keeps re-running it on archive
// changes in watch mode until ctx is cancelled. A missing target version or
// primary archive is fatal in both modes and is reported before anything is
// opened or created.
func executeExtract(ctx context.Context, cfg *config.Config, opts extractOptions) error {
	if strings.TrimSpace(cfg.Extract.TargetVersion) == "" {
		return metadata.ErrMissingVersion
	}
	if strings.TrimSpace(cfg.Paths.Primary) == "" {
		return extract.ErrNoPrimary
	}

	spec, err := metadata.ParseSimpleVersion(cfg.Extract.SpecVersion)
	if err != nil {
		return err
	}

	extractOpts := []extract.Option{
		extract.WithWorkers(cfg.Extract.Workers),
		extract.WithProgress(NewCLIProgressReporter(opts.status, opts.quiet, opts.verbose)),
	}
	// Watch mode re-reads the same libraries on every run
	if opts.watch && cfg.Cache.MaxArchives > 0 {
		cache, err := codetree.NewMemoryCache(cfg.Cache.MaxArchives)
		if err != nil {
			return err
		}
		defer cache.Close()
		extractOpts = append(extractOpts, extract.WithCache(cache))
	}

	run := &extractRun{
		cfg:       cfg,
		spec:      spec,
		extractor: extract.New(extractOpts...),
		opts:      opts,
	}

	if cfg.Catalog.Enabled {
		cat, err := catalog.Open(cfg.Catalog.Path)
		if err != nil {
			return err
		}
		defer cat.Close()
		run.catalog = cat
	}

	_, err = run.once(ctx)
	run.notify(err)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("extraction cancelled")
		}
		if !opts.watch {
			return err
		}
		log.Printf("Warning: initial extraction failed: %v", err)
	}

	if !opts.watch {
		return nil
	}
	return run.watch(ctx)
}

// once runs the pipeline, writes the dataset and records it in the catalog.
func (r *extractRun) once(ctx context.Context) (*extract.Result, error) {
	result, err := r.extractor.Extract(ctx, extract.Request{
		PrimaryPath:     r.cfg.Paths.Primary,
		LibraryDir:      r.cfg.Paths.Libraries,
		LibraryPatterns: r.cfg.Extract.LibraryPatterns,
		LibraryIgnore:   r.cfg.Extract.LibraryIgnore,
		TargetVersion:   r.cfg.Extract.TargetVersion,
		SpecVersion:     r.spec,
	})
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	if err := output.Write(result.Dataset, r.cfg.Paths.Output, r.opts.stdout); err != nil {
		return nil, err
	}

	if r.catalog != nil {
		entry, err := r.catalog.Add(ctx, result.Dataset, r.cfg.Paths.Primary, result.PrimarySHA256)
		if err != nil {
			return nil, fmt.Errorf("failed to record dataset: %w", err)
		}
		if !r.opts.quiet {
			log.Printf("Recorded dataset %s in catalog", entry.ID)
		}
	}

	if r.opts.quiet && r.cfg.Paths.Output != output.Stdout {
		fmt.Fprintf(r.opts.status, "Extraction complete: %d classes in %.2fs\n",
			result.Stats.Roots+result.Stats.Nested, result.Stats.Duration.Seconds())
	}

	return result, nil
}

func (r *extractRun) notify(err error) {
	if r.opts.onRun != nil {
		r.opts.onRun(err)
	}
}

// watch re-runs the pipeline for every debounced batch of archive changes.
func (r *extractRun) watch(ctx context.Context) error {
	w, err := watcher.NewArchiveWatcher(r.cfg.Paths.Primary, r.cfg.Paths.Libraries,
		watcher.WithDebounce(time.Duration(r.cfg.Watch.DebounceMs)*time.Millisecond))
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()

	if !r.opts.quiet {
		log.Println("Watching for archive changes...")
	}

	err = w.Start(ctx, func(files []string) {
		if !r.opts.quiet {
			log.Printf("Detected %d changed archive(s), re-extracting", len(files))
		}
		_, err := r.once(ctx)
		if err != nil && ctx.Err() == nil {
			log.Printf("Warning: %v", err)
		}
		r.notify(err)
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	<-ctx.Done()
	if !r.opts.quiet {
		log.Println("Watch mode stopped")
	}
	return nil
}
