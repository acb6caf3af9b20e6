package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/kozaktomas/photo-grouper/internal/album"
	"github.com/kozaktomas/photo-grouper/internal/cluster"
	"github.com/kozaktomas/photo-grouper/internal/config"
	"github.com/kozaktomas/photo-grouper/internal/fetch"
	"github.com/kozaktomas/photo-grouper/internal/fingerprint"
	"github.com/kozaktomas/photo-grouper/internal/pipeline"
	"github.com/kozaktomas/photo-grouper/internal/storage"
)

var errNotImage = errors.New("payload is not an image")

// ImagesHandler fingerprints images on behalf of the client.
type ImagesHandler struct {
	base        cluster.Config
	names       album.Names
	concurrency int
	pipeline    *pipeline.Pipeline
	fetcher     pipeline.Fetcher
	hasher      fingerprint.Hasher
	store       storage.Store
	logger      hclog.Logger
}

// NewImagesHandler creates a new images handler.
func NewImagesHandler(cfg *config.Config, p *pipeline.Pipeline, fetcher pipeline.Fetcher,
	hasher fingerprint.Hasher, store storage.Store, logger hclog.Logger,
) *ImagesHandler {
	return &ImagesHandler{
		base:        cfg.Cluster.Engine(),
		names:       cfg.Albums.Names(),
		concurrency: cfg.Fetch.Concurrency,
		pipeline:    p,
		fetcher:     fetcher,
		hasher:      hasher,
		store:       store,
		logger:      logger.Named("images"),
	}
}

// isRemoteURL reports whether s should be downloaded rather than decoded.
func isRemoteURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// decodeImageInput accepts a data URI or bare base64 and checks that the
// payload is an image.
func decodeImageInput(s string) (*fetch.Resource, error) {
	var res *fetch.Resource
	if fetch.IsDataURI(s) {
		parsed, err := fetch.ParseDataURI(s)
		if err != nil {
			return nil, err
		}
		res = parsed
	} else {
		data, err := fetch.DecodeBase64(s)
		if err != nil {
			return nil, err
		}
		res = &fetch.Resource{Data: data}
	}

	if len(res.Data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", errNotImage)
	}
	sniffed := http.DetectContentType(res.Data)
	if !strings.HasPrefix(res.ContentType, "image/") {
		res.ContentType = sniffed
	}
	if !strings.HasPrefix(sniffed, "image/") && !strings.HasPrefix(res.ContentType, "image/") {
		return nil, fmt.Errorf("%w: detected %s", errNotImage, sniffed)
	}
	return res, nil
}

// storeInline saves an inline image and returns its public URL.
func storeInline(ctx context.Context, store storage.Store, n int, res *fetch.Resource) (string, error) {
	name := storage.ObjectName(n, res.ContentType)
	return store.Put(ctx, name, res.ContentType, res.Data)
}

type hashRequest struct {
	URL string `json:"url"`
}

type hashResponse struct {
	Hash string `json:"hash"`
	URL  string `json:"url"`
}

// Hash downloads one image and returns its perceptual hash as hex.
func (h *ImagesHandler) Hash(w http.ResponseWriter, r *http.Request) {
	var req hashRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var errs validationErrors
	if strings.TrimSpace(req.URL) == "" {
		errs.add("url", "is required")
	}
	if errs.respond(w) {
		return
	}

	data, err := h.fetcher.Fetch(r.Context(), req.URL)
	if err != nil {
		h.logger.Warn("hash download failed", "url", sanitizeForLog(req.URL), "error", err)
		respondError(w, http.StatusBadGateway, fmt.Sprintf("failed to fetch image: %v", err))
		return
	}

	hash, err := h.hasher.Hash(data)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("failed to decode image: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, hashResponse{Hash: hash.Hex(), URL: req.URL})
}

type colorRequest struct {
	URLs []string `json:"urls"`
}

type colorResponse struct {
	Results []pipeline.Fingerprinted `json:"results"`
	Errors  []cluster.ItemError      `json:"errors"`
}

// Color extracts the dominant palette and tone of every URL.
func (h *ImagesHandler) Color(w http.ResponseWriter, r *http.Request) {
	var req colorRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var errs validationErrors
	errs.validateBatch("urls", len(req.URLs))
	for i, u := range req.URLs {
		if strings.TrimSpace(u) == "" {
			errs.add(fmt.Sprintf("urls[%d]", i), "is required")
		}
	}
	if errs.respond(w) {
		return
	}

	results, itemErrs := h.pipeline.Fingerprint(r.Context(), req.URLs, pipeline.Options{
		Concurrency: h.concurrency,
		Colors:      true,
	})
	if itemErrs == nil {
		itemErrs = []cluster.ItemError{}
	}
	respondJSON(w, http.StatusOK, colorResponse{Results: results, Errors: itemErrs})
}

type processRequest struct {
	Images []string        `json:"images"`
	Colors bool            `json:"colors"`
	Config *configOverride `json:"config"`
}

// ProcessImages fingerprints remote and inline images and clusters them in
// one pass. Inline images are stored first; their stored URL becomes the
// photo ID in the albums.
func (h *ImagesHandler) ProcessImages(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cfg := req.Config.apply(h.base)

	var errs validationErrors
	errs.validateBatch("images", len(req.Images))
	for i, img := range req.Images {
		if strings.TrimSpace(img) == "" {
			errs.add(fmt.Sprintf("images[%d]", i), "is required")
		}
	}
	errs.validateConfig("config", cfg)
	if errs.respond(w) {
		return
	}

	var (
		urls     = make([]string, 0, len(req.Images))
		inline   = make(map[string][]byte)
		inputErr []cluster.ItemError
	)
	for i, img := range req.Images {
		if isRemoteURL(img) {
			urls = append(urls, img)
			continue
		}

		id := fmt.Sprintf("images[%d]", i)
		res, err := decodeImageInput(img)
		if err != nil {
			inputErr = append(inputErr, cluster.NewItemErrorKind(id, cluster.KindInvalidFormat, err))
			continue
		}
		url, err := storeInline(r.Context(), h.store, i+1, res)
		if err != nil {
			h.logger.Error("storing inline image failed", "index", i, "error", err)
			inputErr = append(inputErr, cluster.NewItemErrorKind(id, cluster.KindStorageFailed, err))
			continue
		}
		inline[url] = res.Data
		urls = append(urls, url)
	}

	p := h.pipeline
	if len(inline) > 0 {
		p = p.WithFetcher(pipeline.Preloaded(inline, h.fetcher))
	}
	out, err := p.Process(r.Context(), urls, cfg, h.names, pipeline.Options{
		Concurrency: h.concurrency,
		Hashes:      true,
		Colors:      req.Colors,
	})
	if err != nil {
		h.logger.Error("processing images failed", "error", err)
		respondError(w, http.StatusInternalServerError, "processing failed")
		return
	}

	respondJSON(w, http.StatusOK, newAlbumsResponse(out.Albums, append(inputErr, out.Errors...)))
}
