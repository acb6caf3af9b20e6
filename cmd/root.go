package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "photo-grouper",
	Short: "Group photos into duplicate sets, similar sets and colour moodboards",
	Long: `Photo Grouper fingerprints photos with perceptual hashes and dominant
colours and groups them in a single greedy pass into albums: exact duplicates,
near-duplicates within a Hamming distance threshold, and colour moodboards.

It runs as an HTTP service (serve) or directly on local files (cluster).`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
