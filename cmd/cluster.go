package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-grouper/internal/cluster"
	"github.com/kozaktomas/photo-grouper/internal/config"
	"github.com/kozaktomas/photo-grouper/internal/fetch"
	"github.com/kozaktomas/photo-grouper/internal/logging"
	"github.com/kozaktomas/photo-grouper/internal/pipeline"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster <file|dir|url>...",
	Short: "Group local photos into duplicate sets, similar sets and moodboards",
	Long: `Fingerprint photos from files, directories or URLs and group them.

Photos are processed in argument order; directories are expanded in path
order. The same photos in a different order can form different groups.

Examples:
  # Duplicates and near-duplicates in a folder
  photo-grouper cluster ~/Pictures/trip

  # Include colour moodboards, stricter similarity
  photo-grouper cluster --colors --threshold 4 ~/Pictures/trip

  # Bucket moodboards split by tone, as JSON
  photo-grouper cluster --colors --strategy bucket --with-tone --json ./photos`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCluster,
}

func init() {
	rootCmd.AddCommand(clusterCmd)

	clusterCmd.Flags().BoolP("recursive", "r", false, "Descend into subdirectories")
	clusterCmd.Flags().Bool("colors", false, "Also build colour moodboards")
	clusterCmd.Flags().String("policy", "", "Group assignment policy: first-fit or best-fit (default from config)")
	clusterCmd.Flags().Int("threshold", -1, "Maximum Hamming distance for similar photos (default from config)")
	clusterCmd.Flags().Float64("color-threshold", -1, "Maximum RGB distance for proximity moodboards (default from config)")
	clusterCmd.Flags().String("strategy", "", "Colour strategy: proximity or bucket (default from config)")
	clusterCmd.Flags().Int("bucket-size", 0, "Bucket width per channel for the bucket strategy (default from config)")
	clusterCmd.Flags().Bool("with-tone", false, "Split colour buckets by tone")
	clusterCmd.Flags().Int("concurrency", 0, "Number of parallel workers (default from config)")
	clusterCmd.Flags().Duration("timeout", 0, "Abort the run after this long (0 = no limit)")
	clusterCmd.Flags().Bool("json", false, "Output as JSON")
}

// clusterConfigFromFlags applies the flags the user set on top of the config.
func clusterConfigFromFlags(cmd *cobra.Command, cfg *config.Config) cluster.Config {
	engine := cfg.Cluster.Engine()
	if p := mustGetString(cmd, "policy"); p != "" {
		engine.Policy = cluster.Policy(p)
	}
	if t := mustGetInt(cmd, "threshold"); t >= 0 {
		engine.SimilarityThreshold = t
	}
	if t := mustGetFloat64(cmd, "color-threshold"); t >= 0 {
		engine.ColorThreshold = t
	}
	if s := mustGetString(cmd, "strategy"); s != "" {
		engine.ColorStrategy = cluster.ColorStrategyKind(s)
	}
	if b := mustGetInt(cmd, "bucket-size"); b > 0 {
		engine.BucketSize = b
	}
	if cmd.Flags().Changed("with-tone") {
		engine.BucketWithTone = mustGetBool(cmd, "with-tone")
	}
	return engine
}

func runCluster(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	jsonOutput := mustGetBool(cmd, "json")
	colors := mustGetBool(cmd, "colors")

	engine := clusterConfigFromFlags(cmd, cfg)
	if err := engine.Validate(); err != nil {
		return err
	}

	concurrency := mustGetInt(cmd, "concurrency")
	if concurrency <= 0 {
		concurrency = cfg.Fetch.Concurrency
	}

	inputs, err := collectInputs(args, mustGetBool(cmd, "recursive"))
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no images found in %v", args)
	}

	// Warnings go through the logger only when it cannot garble the progress bar.
	logger := logging.Discard()
	if jsonOutput {
		logger = logging.New(cfg.Log)
	}

	hasher, extractor, err := fingerprinters(cfg)
	if err != nil {
		return err
	}
	fetcher := localFetcher{remote: fetch.New(cfg.Fetch, logger)}
	p := pipeline.New(fetcher, hasher, extractor, logger)

	ctx := context.Background()
	if timeout := mustGetDuration(cmd, "timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	opts := pipeline.Options{Concurrency: concurrency, Hashes: true, Colors: colors}
	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(inputs),
			progressbar.OptionSetDescription("Fingerprinting"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("photos"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
		opts.OnProgress = func(done, total int) { bar.Add(1) }
	}

	out, err := p.Process(ctx, inputs, engine, cfg.Albums.Names(), opts)
	if err != nil {
		return err
	}
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}

	if jsonOutput {
		if err := json.NewEncoder(os.Stdout).Encode(out); err != nil {
			return fmt.Errorf("encoding JSON output: %w", err)
		}
		return nil
	}
	printClusterOutput(os.Stdout, out)
	return nil
}

func printClusterOutput(w io.Writer, out *pipeline.Output) {
	if len(out.Albums) == 0 {
		fmt.Fprintln(w, "No albums found")
	} else {
		fmt.Fprintf(w, "Found %d albums:\n\n", len(out.Albums))
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ALBUM\tKIND\tPHOTOS\tCOVER")
		fmt.Fprintln(tw, "-----\t----\t------\t-----")
		for _, a := range out.Albums {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", a.Name, a.Kind, len(a.Photos), a.CoverPhoto)
			for _, photo := range a.Photos[1:] {
				fmt.Fprintf(tw, "\t\t\t%s\n", photo)
			}
		}
		tw.Flush()
	}

	if len(out.Errors) > 0 {
		fmt.Fprintf(w, "\n%d photos could not be processed:\n\n", len(out.Errors))
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PHOTO\tKIND\tERROR")
		for _, e := range out.Errors {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", e.ID, e.Kind, e.Message)
		}
		tw.Flush()
	}
}
