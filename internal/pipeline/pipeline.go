// Package pipeline turns batches of image URLs into albums: download and
// fingerprint concurrently, then cluster once in submission order.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/kozaktomas/photo-grouper/internal/album"
	"github.com/kozaktomas/photo-grouper/internal/cluster"
	"github.com/kozaktomas/photo-grouper/internal/constants"
	"github.com/kozaktomas/photo-grouper/internal/fingerprint"
)

// Fetcher downloads image bytes by URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Options controls one pipeline run.
type Options struct {
	Concurrency int
	// Hashes and Colors select which fingerprints are computed.
	Hashes bool
	Colors bool
	// OnProgress is called after each image is fingerprinted.
	OnProgress func(done, total int)
}

// Fingerprinted is the computed fingerprint of one image.
type Fingerprinted struct {
	URL     string           `json:"url"`
	Hash    string           `json:"hash,omitempty"`
	Palette []string         `json:"palette,omitempty"`
	Color   *fingerprint.RGB `json:"color,omitempty"`
	Tone    string           `json:"tone,omitempty"`
}

// Item converts the fingerprint into a clustering item.
func (f Fingerprinted) Item() cluster.Item {
	return cluster.Item{ID: f.URL, Hash: f.Hash, Color: f.Color, Palette: f.Palette, Tone: f.Tone}
}

// Output is the result of Process.
type Output struct {
	Albums []album.Album       `json:"albums"`
	Images []Fingerprinted     `json:"-"`
	Errors []cluster.ItemError `json:"errors"`
}

type Pipeline struct {
	fetcher Fetcher
	hasher  fingerprint.Hasher
	palette fingerprint.PaletteExtractor
	logger  hclog.Logger
}

func New(fetcher Fetcher, hasher fingerprint.Hasher, palette fingerprint.PaletteExtractor, logger hclog.Logger) *Pipeline {
	return &Pipeline{
		fetcher: fetcher,
		hasher:  hasher,
		palette: palette,
		logger:  logger.Named("pipeline"),
	}
}

// WithFetcher returns a copy of the pipeline that downloads through f.
func (p *Pipeline) WithFetcher(f Fetcher) *Pipeline {
	cp := *p
	cp.fetcher = f
	return &cp
}

// Preloaded serves images already held in memory, such as inline uploads
// that were just stored, and defers every other URL to next.
func Preloaded(images map[string][]byte, next Fetcher) Fetcher {
	return &preloadedFetcher{images: images, next: next}
}

type preloadedFetcher struct {
	images map[string][]byte
	next   Fetcher
}

func (f *preloadedFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if data, ok := f.images[url]; ok {
		return data, nil
	}
	return f.next.Fetch(ctx, url)
}

type fingerprintResult struct {
	index int
	image *Fingerprinted
	errs  []cluster.ItemError
}

// Fingerprint downloads and fingerprints urls concurrently. The returned
// images keep submission order; failed images are left out and reported.
func (p *Pipeline) Fingerprint(ctx context.Context, urls []string, opts Options) ([]Fingerprinted, []cluster.ItemError) {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = constants.DefaultConcurrency
	}

	results := make(chan fingerprintResult, len(urls))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var done int
	var progressMu sync.Mutex

	reportProgress := func() {
		if opts.OnProgress == nil {
			return
		}
		progressMu.Lock()
		done++
		current := done
		progressMu.Unlock()
		opts.OnProgress(current, len(urls))
	}

	for i, u := range urls {
		wg.Add(1)
		go func(idx int, url string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			img, errs := p.fingerprintOne(ctx, url, opts)
			results <- fingerprintResult{index: idx, image: img, errs: errs}
			reportProgress()
		}(i, u)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results maintaining order
	ordered := make([]fingerprintResult, len(urls))
	for r := range results {
		ordered[r.index] = r
	}

	images := make([]Fingerprinted, 0, len(urls))
	var errs []cluster.ItemError
	for _, r := range ordered {
		errs = append(errs, r.errs...)
		if r.image != nil {
			images = append(images, *r.image)
		}
	}
	return images, errs
}

func (p *Pipeline) fingerprintOne(ctx context.Context, url string, opts Options) (*Fingerprinted, []cluster.ItemError) {
	if err := ctx.Err(); err != nil {
		return nil, []cluster.ItemError{cluster.NewItemErrorKind(url, cluster.KindFetchFailed, err)}
	}

	data, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		p.logger.Warn("fetch failed", "url", url, "error", err)
		return nil, []cluster.ItemError{cluster.NewItemErrorKind(url, cluster.KindFetchFailed, err)}
	}

	img := &Fingerprinted{URL: url}
	var errs []cluster.ItemError

	if opts.Hashes {
		h, err := p.hasher.Hash(data)
		if err != nil {
			errs = append(errs, decodeError(url, cluster.EngineHash, err))
		} else {
			img.Hash = h.String()
		}
	}

	if opts.Colors {
		sw, err := p.palette.Extract(data)
		if err != nil {
			errs = append(errs, decodeError(url, cluster.EngineColor, err))
		} else {
			c := sw.Color
			img.Color = &c
			img.Palette = sw.Palette
			img.Tone = sw.Tone
		}
	}

	if img.Hash == "" && img.Color == nil {
		return nil, errs
	}
	return img, errs
}

func decodeError(url, engine string, err error) cluster.ItemError {
	ie := cluster.NewItemErrorKind(url, cluster.KindDecodeFailed, err)
	ie.Engine = engine
	return ie
}

// Process fingerprints urls and clusters them with cfg. Albums are named with
// names, or the defaults when nil.
func (p *Pipeline) Process(ctx context.Context, urls []string, cfg cluster.Config, names album.Names, opts Options) (*Output, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	images, errs := p.Fingerprint(ctx, urls, opts)

	items := make([]cluster.Item, len(images))
	for i, img := range images {
		items[i] = img.Item()
	}
	res, err := cluster.Run(items, cfg)
	if err != nil {
		return nil, fmt.Errorf("clustering: %w", err)
	}
	errs = append(errs, res.Errors...)

	albums := album.NewAssembler(names).AddHash(res.Hash).AddColor(res.Color).Albums()
	p.logger.Info("batch processed", "images", len(urls), "fingerprinted", len(images), "albums", len(albums), "errors", len(errs))

	if errs == nil {
		errs = []cluster.ItemError{}
	}
	return &Output{Albums: albums, Images: images, Errors: errs}, nil
}
