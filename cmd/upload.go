package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-grouper/internal/config"
	"github.com/kozaktomas/photo-grouper/internal/logging"
	"github.com/kozaktomas/photo-grouper/internal/storage"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file|dir>...",
	Short: "Store photos in the configured storage backend",
	Long: `Store local photos in the storage backend used by the service and print
the URL each one is served under. The URLs can be passed to /api/processImages.

By default, only files in the given folders are uploaded (non-recursive).
Use -r to search recursively in subdirectories.

Example:
  photo-grouper upload /path/to/photos
  STORAGE_BACKEND=sql STORAGE_SQL_DRIVER=sqlite3 DATABASE_URL=photos.db photo-grouper upload -r /path/to/photos`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().BoolP("recursive", "r", false, "Search for photos recursively in subdirectories")
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	filePaths, err := collectInputs(args, mustGetBool(cmd, "recursive"))
	if err != nil {
		return err
	}
	if len(filePaths) == 0 {
		fmt.Println("No image files found in the specified folders.")
		return nil
	}
	for _, p := range filePaths {
		if isURL(p) {
			return fmt.Errorf("%s: only local files can be uploaded", p)
		}
	}

	store, err := storage.New(cfg.Storage, logging.Discard())
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	fmt.Printf("Found %d image(s) to upload\n", len(filePaths))

	uploadBar := progressbar.NewOptions(len(filePaths),
		progressbar.OptionSetDescription("Uploading"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	ctx := context.Background()
	var urls, uploadErrors []string
	for i, filePath := range filePaths {
		url, err := uploadFile(ctx, store, i+1, filePath)
		uploadBar.Add(1)
		if err != nil {
			uploadErrors = append(uploadErrors, fmt.Sprintf("%s: %v", filepath.Base(filePath), err))
			continue
		}
		urls = append(urls, url)
	}
	fmt.Println()

	for _, u := range urls {
		fmt.Println(u)
	}
	for _, errMsg := range uploadErrors {
		fmt.Printf("Failed: %s\n", errMsg)
	}

	if len(urls) == 0 {
		return fmt.Errorf("no files were uploaded successfully")
	}
	return nil
}

func uploadFile(ctx context.Context, store storage.Store, n int, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		contentType = storage.ContentType(path)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("not an image (%s)", contentType)
	}
	return store.Put(ctx, storage.ObjectName(n, contentType), contentType, data)
}
