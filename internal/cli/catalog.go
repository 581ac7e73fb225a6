package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mvp-joe/jarmeta/internal/catalog"
	"github.com/mvp-joe/jarmeta/internal/output"
	"github.com/spf13/cobra"
)

var showOutputFlag string

// catalogCmd groups the dataset catalog commands
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect datasets recorded by previous extractions",
	Long: `When catalog.enabled is set, every successful extraction is recorded in a
SQLite catalog (catalog.path, default .jarmeta/catalog.db).`,
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded datasets, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return executeCatalogList(cmd.Context(), cfg.Catalog.Path, cmd.OutOrStdout())
	},
}

var catalogShowCmd = &cobra.Command{
	Use:   "show <id|version>",
	Short: "Print a recorded dataset",
	Long: `Show prints the dataset recorded under the given id. When no id matches,
the argument is taken as a target version and the newest dataset for it is
printed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out := showOutputFlag
		if out == "" {
			out = output.Stdout
		}
		return executeCatalogShow(cmd.Context(), cfg.Catalog.Path, args[0], out, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogListCmd, catalogShowCmd)
	catalogShowCmd.Flags().StringVarP(&showOutputFlag, "output", "o", "", "Write the dataset to a file instead of stdout")
}

// openExistingCatalog opens the catalog at path without creating it.
func openExistingCatalog(path string) (*catalog.Catalog, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no catalog at %s, enable catalog.enabled and run 'jarmeta extract' first", path)
	}
	return catalog.Open(path)
}

func executeCatalogList(ctx context.Context, path string, w io.Writer) error {
	cat, err := openExistingCatalog(path)
	if err != nil {
		return err
	}
	defer cat.Close()

	entries, err := cat.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No datasets recorded")
		return nil
	}

	fmt.Fprintf(w, "%-36s  %-12s  %-6s  %8s  %8s  %s\n", "ID", "TARGET", "SPEC", "ROOTS", "CLASSES", "CREATED")
	for _, e := range entries {
		fmt.Fprintf(w, "%-36s  %-12s  %-6s  %8s  %8s  %s\n",
			e.ID, e.TargetVersion, e.SpecVersion,
			formatNumber(e.Roots), formatNumber(e.Classes),
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func executeCatalogShow(ctx context.Context, path, ref, out string, stdout io.Writer) error {
	cat, err := openExistingCatalog(path)
	if err != nil {
		return err
	}
	defer cat.Close()

	_, set, err := cat.Load(ctx, ref)
	if err != nil {
		return err
	}
	return output.Write(set, out, stdout)
}
