package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Build metadata variables, set by -ldflags at compile time.
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Long: `Print the photo-grouper build: version, commit and build date.

photo-grouper groups photos by perceptual hash and by dominant colour,
over HTTP (serve) or on local files (cluster).`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("photo-grouper %s (photo grouping by hash and colour)\n", Version)
		fmt.Printf("  Commit: %s\n", CommitSHA)
		fmt.Printf("  Built:  %s\n", BuildDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
