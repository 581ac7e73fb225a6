package cli

import (
	"fmt"

	"github.com/mvp-joe/jarmeta/internal/metadata"
	"github.com/spf13/cobra"
)

var (
	// Version information - typically set via ldflags at build time
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of Jarmeta",
	Long:  `Print the build version and the default dataset spec version.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Jarmeta %s\n", Version)
		fmt.Fprintf(out, "Git commit: %s\n", GitCommit)
		fmt.Fprintf(out, "Build date: %s\n", BuildDate)
		fmt.Fprintf(out, "Dataset spec: %s\n", metadata.DefaultSpecVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
