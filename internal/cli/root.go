package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mvp-joe/jarmeta/internal/config"
	"github.com/spf13/cobra"
)

var (
	projectDirFlag string
	verbose        bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "jarmeta",
	Short: "Jarmeta - class metadata extraction for game jars",
	Long: `Jarmeta reads a primary jar together with its library jars and writes a
versioned JSON dataset describing every primary class: members, generic
signatures, inner-class nesting and the methods each one overrides.

Configuration is read from .jarmeta/config.yml in the project directory,
then .jarmeta/.env, then JARMETA_* environment variables.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectDirFlag, "dir", "C", "", "project directory containing .jarmeta/ (default is the working directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// projectDir returns the absolute project directory.
func projectDir() (string, error) {
	if projectDirFlag != "" {
		return filepath.Abs(projectDirFlag)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return wd, nil
}

// loadConfig loads the project configuration with paths anchored at the
// project directory.
func loadConfig() (*config.Config, error) {
	rootDir, err := projectDir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.Resolve(rootDir)
	return cfg, nil
}
