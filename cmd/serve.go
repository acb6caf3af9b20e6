package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-grouper/internal/config"
	"github.com/kozaktomas/photo-grouper/internal/fetch"
	"github.com/kozaktomas/photo-grouper/internal/fingerprint"
	"github.com/kozaktomas/photo-grouper/internal/labels"
	"github.com/kozaktomas/photo-grouper/internal/logging"
	"github.com/kozaktomas/photo-grouper/internal/pipeline"
	"github.com/kozaktomas/photo-grouper/internal/storage"
	"github.com/kozaktomas/photo-grouper/internal/web"
	"github.com/kozaktomas/photo-grouper/internal/web/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP service",
	Long: `Start the Photo Grouper HTTP service.

The service clusters client-supplied hashes and palettes (/api/compare,
/api/palettes, /api/cluster), fingerprints remote or uploaded images
(/api/hash, /api/color, /api/processImages), stores uploads (/api/upload,
/media/{name}) and detects food labels (/detectFood) when Gemini is configured.

Configuration comes from environment variables (a .env file is read if
present) and an optional YAML file named by CLUSTER_CONFIG.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().Duration("shutdown-timeout", 30*time.Second, "Time allowed for in-flight requests on shutdown")
}

// fingerprinters builds the hash and palette providers selected by cfg.
func fingerprinters(cfg *config.Config) (*fingerprint.ImageHasher, *fingerprint.HistogramExtractor, error) {
	hasher, err := fingerprint.NewImageHasher(fingerprint.Algorithm(cfg.Hash.Algorithm))
	if err != nil {
		return nil, nil, err
	}
	return hasher, fingerprint.NewHistogramExtractor(cfg.Palette.Size), nil
}

// buildDetector wires the label provider and translator. It returns nil when
// no Gemini key is configured; a missing OpenAI token only disables translation.
func buildDetector(ctx context.Context, cfg *config.Config, logger hclog.Logger) handlers.FoodDetector {
	if cfg.Labels.GeminiAPIKey == "" {
		logger.Info("GEMINI_API_KEY not set, food detection disabled")
		return nil
	}
	provider, err := labels.NewGeminiProvider(ctx, cfg.Labels.GeminiAPIKey, cfg.Labels.GeminiModel)
	if err != nil {
		logger.Warn("food detection disabled", "error", err)
		return nil
	}

	var translator labels.Translator
	if cfg.Labels.OpenAIToken != "" {
		t, err := labels.NewOpenAITranslator(cfg.Labels.OpenAIToken)
		if err != nil {
			logger.Warn("label translation disabled", "error", err)
		} else {
			translator = t
		}
	} else {
		logger.Info("OPENAI_TOKEN not set, labels are matched untranslated")
	}

	return labels.NewDetector(provider, translator, nil, cfg.Labels.Language, logger)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Web.Port = mustGetInt(cmd, "port")
	}
	if cmd.Flags().Changed("host") {
		cfg.Web.Host = mustGetString(cmd, "host")
	}
	shutdownTimeout := mustGetDuration(cmd, "shutdown-timeout")

	logger := logging.New(cfg.Log)

	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()
	logger.Info("storage ready", "backend", cfg.Storage.Backend)

	hasher, extractor, err := fingerprinters(cfg)
	if err != nil {
		return err
	}
	fetcher := fetch.New(cfg.Fetch, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := web.NewServer(cfg, web.Deps{
		Pipeline: pipeline.New(fetcher, hasher, extractor, logger),
		Fetcher:  fetcher,
		Hasher:   hasher,
		Store:    store,
		Detector: buildDetector(ctx, cfg, logger),
	}, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, shutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during shutdown", "error", err)
		}
	}()

	fmt.Printf("Starting Photo Grouper on http://%s\n", cfg.Web.Addr())
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
