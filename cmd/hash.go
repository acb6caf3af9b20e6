package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-grouper/internal/config"
	"github.com/kozaktomas/photo-grouper/internal/fetch"
	"github.com/kozaktomas/photo-grouper/internal/fingerprint"
	"github.com/kozaktomas/photo-grouper/internal/logging"
	"github.com/kozaktomas/photo-grouper/internal/pipeline"
)

var hashCmd = &cobra.Command{
	Use:   "hash <file|url>...",
	Short: "Print perceptual hashes and dominant colours",
	Long: `Compute the fingerprints used for grouping without grouping anything.

The hash is printed as 64-bit hex, the form accepted by /api/compare.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHash,
}

func init() {
	rootCmd.AddCommand(hashCmd)

	hashCmd.Flags().Bool("colors", false, "Also print the palette and tone")
	hashCmd.Flags().String("algorithm", "", "Hash algorithm: phash, dhash or ahash (default from config)")
	hashCmd.Flags().Bool("json", false, "Output as JSON")
}

type hashOutput struct {
	Source  string   `json:"source"`
	Hash    string   `json:"hash"`
	Palette []string `json:"palette,omitempty"`
	Tone    string   `json:"tone,omitempty"`
}

func runHash(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if alg := mustGetString(cmd, "algorithm"); alg != "" {
		cfg.Hash.Algorithm = alg
	}
	jsonOutput := mustGetBool(cmd, "json")

	inputs, err := collectInputs(args, false)
	if err != nil {
		return err
	}

	hasher, extractor, err := fingerprinters(cfg)
	if err != nil {
		return err
	}
	logger := logging.Discard()
	fetcher := localFetcher{remote: fetch.New(cfg.Fetch, logger)}
	p := pipeline.New(fetcher, hasher, extractor, logger)

	images, errs := p.Fingerprint(context.Background(), inputs, pipeline.Options{
		Concurrency: cfg.Fetch.Concurrency,
		Hashes:      true,
		Colors:      mustGetBool(cmd, "colors"),
	})

	results := make([]hashOutput, 0, len(images))
	for _, img := range images {
		out := hashOutput{Source: img.URL, Palette: img.Palette, Tone: img.Tone}
		if h, err := fingerprint.ParseHash(img.Hash, fingerprint.HashBits); err == nil {
			out.Hash = h.Hex()
		}
		results = append(results, out)
	}

	if jsonOutput {
		if err := json.NewEncoder(os.Stdout).Encode(map[string]any{"results": results, "errors": errs}); err != nil {
			return fmt.Errorf("encoding JSON output: %w", err)
		}
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PHOTO\tHASH\tPALETTE\tTONE")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Source, r.Hash, strings.Join(r.Palette, " "), r.Tone)
	}
	w.Flush()

	for _, e := range errs {
		fmt.Fprintf(os.Stderr, "Error: %s: %s\n", e.ID, e.Message)
	}
	return nil
}
