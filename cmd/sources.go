package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kozaktomas/photo-grouper/internal/pipeline"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".bmp": true,
}

func isURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "data:")
}

// collectInputs expands directories into the image files they contain,
// sorted by path so runs are reproducible. URLs and files pass through in
// argument order.
func collectInputs(args []string, recursive bool) ([]string, error) {
	var inputs []string
	for _, arg := range args {
		if isURL(arg) {
			inputs = append(inputs, arg)
			continue
		}

		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", arg, err)
		}
		if !info.IsDir() {
			inputs = append(inputs, arg)
			continue
		}

		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && !recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if imageExtensions[strings.ToLower(filepath.Ext(path))] {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", arg, err)
		}
		sort.Strings(found)
		inputs = append(inputs, found...)
	}
	return inputs, nil
}

// localFetcher reads file paths from disk and hands URLs to remote.
type localFetcher struct {
	remote pipeline.Fetcher
}

func (f localFetcher) Fetch(ctx context.Context, src string) ([]byte, error) {
	if isURL(src) {
		return f.remote.Fetch(ctx, src)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", src, err)
	}
	return data, nil
}
