package cli

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/mvp-joe/jarmeta/internal/extract"
	"github.com/schollz/progressbar/v3"
)

// CLIProgressReporter implements progress reporting with progress bars.
// Everything goes to out so stdout stays clean when the dataset is written there.
type CLIProgressReporter struct {
	quiet      bool
	verbose    bool
	out        io.Writer
	mu         sync.Mutex // library callbacks arrive from worker goroutines
	libraryBar *progressbar.ProgressBar
	classBar   *progressbar.ProgressBar
}

// NewCLIProgressReporter creates a new CLI progress reporter writing to out.
func NewCLIProgressReporter(out io.Writer, quiet, verbose bool) *CLIProgressReporter {
	return &CLIProgressReporter{
		quiet:   quiet,
		verbose: verbose,
		out:     out,
	}
}

func (c *CLIProgressReporter) newBar(total int, description, its string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString(its),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

func (c *CLIProgressReporter) OnStageStart(stage extract.Stage) {
	if c.quiet || !c.verbose {
		return
	}
	log.Printf("Stage: %s", stage)
}

func (c *CLIProgressReporter) OnLibrariesStart(total int) {
	if c.quiet {
		return
	}
	if total == 0 {
		log.Println("No library archives found")
		return
	}
	log.Printf("Loading %d library archives", total)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.libraryBar = c.newBar(total, "Loading libraries", "jars/s")
}

func (c *CLIProgressReporter) OnLibraryLoaded(path string, classes int) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.libraryBar != nil {
		c.libraryBar.Add(1)
	}
}

func (c *CLIProgressReporter) OnClassesStart(total int) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.libraryBar != nil {
		c.libraryBar.Finish()
		c.libraryBar = nil
	}
	c.classBar = c.newBar(total, "Converting classes", "classes/s")
}

func (c *CLIProgressReporter) OnClassProcessed(name string) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.classBar != nil {
		c.classBar.Add(1)
	}
}

func (c *CLIProgressReporter) OnComplete(stats *extract.Stats) {
	c.mu.Lock()
	if c.classBar != nil {
		c.classBar.Finish()
		c.classBar = nil
	}
	c.mu.Unlock()

	if c.quiet {
		return
	}

	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "✓ Extraction complete: %s classes in %.1fs\n",
		formatNumber(stats.Roots+stats.Nested), stats.Duration.Seconds())
	fmt.Fprintf(c.out, "  Roots:    %s\n", formatNumber(stats.Roots))
	fmt.Fprintf(c.out, "  Nested:   %s\n", formatNumber(stats.Nested))
	fmt.Fprintf(c.out, "  Archives: %s (%s library classes, %s shadowed)\n",
		formatNumber(stats.Archives), formatNumber(stats.LibraryClasses), formatNumber(stats.Shadowed))
}

// formatNumber formats an integer with thousands separators.
func formatNumber(n int) string {
	if n < 1000 && n > -1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	sign := ""
	if str[0] == '-' {
		sign, str = "-", str[1:]
	}
	var result string
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return sign + result
}
