package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-hclog"

	"github.com/kozaktomas/photo-grouper/internal/album"
	"github.com/kozaktomas/photo-grouper/internal/cluster"
	"github.com/kozaktomas/photo-grouper/internal/config"
	"github.com/kozaktomas/photo-grouper/internal/constants"
)

// ClusterHandler groups client-supplied fingerprints.
type ClusterHandler struct {
	base   cluster.Config
	names  album.Names
	logger hclog.Logger
}

// NewClusterHandler creates a new cluster handler.
func NewClusterHandler(cfg *config.Config, logger hclog.Logger) *ClusterHandler {
	return &ClusterHandler{
		base:   cfg.Cluster.Engine(),
		names:  cfg.Albums.Names(),
		logger: logger.Named("cluster"),
	}
}

// configOverride holds per-request engine settings. Absent fields keep the
// server configuration.
type configOverride struct {
	HashBits            *int     `json:"hashBits"`
	SimilarityThreshold *int     `json:"similarityThreshold"`
	ColorThreshold      *float64 `json:"colorThreshold"`
	BucketSize          *int     `json:"bucketSize"`
	BucketWithTone      *bool    `json:"bucketWithTone"`
	Policy              *string  `json:"policy"`
	ColorStrategy       *string  `json:"colorStrategy"`
}

func (o *configOverride) apply(base cluster.Config) cluster.Config {
	cfg := base
	if o == nil {
		return cfg
	}
	if o.HashBits != nil {
		cfg.HashBits = *o.HashBits
	}
	if o.SimilarityThreshold != nil {
		cfg.SimilarityThreshold = *o.SimilarityThreshold
	}
	if o.ColorThreshold != nil {
		cfg.ColorThreshold = *o.ColorThreshold
	}
	if o.BucketSize != nil {
		cfg.BucketSize = *o.BucketSize
	}
	if o.BucketWithTone != nil {
		cfg.BucketWithTone = *o.BucketWithTone
	}
	if o.Policy != nil {
		cfg.Policy = cluster.Policy(*o.Policy)
	}
	if o.ColorStrategy != nil {
		cfg.ColorStrategy = cluster.ColorStrategyKind(*o.ColorStrategy)
	}
	return cfg
}

// validateConfig records an invalid engine configuration under field.
func (v *validationErrors) validateConfig(field string, cfg cluster.Config) {
	if err := cfg.Validate(); err != nil {
		v.add(field, "%v", err)
	}
}

// validateBatch checks the size of a submitted list.
func (v *validationErrors) validateBatch(field string, n int) {
	switch {
	case n == 0:
		v.add(field, "must contain at least one entry")
	case n > constants.MaxBatchSize:
		v.add(field, "must not contain more than %d entries", constants.MaxBatchSize)
	}
}

type albumsResponse struct {
	Albums []album.Album       `json:"albums"`
	Errors []cluster.ItemError `json:"errors"`
}

func newAlbumsResponse(albums []album.Album, errs []cluster.ItemError) albumsResponse {
	if albums == nil {
		albums = []album.Album{}
	}
	if errs == nil {
		errs = []cluster.ItemError{}
	}
	return albumsResponse{Albums: albums, Errors: errs}
}

type hashEntry struct {
	URL  string `json:"url"`
	Hash string `json:"hash"`
}

type compareRequest struct {
	Hashes    []hashEntry `json:"hashes"`
	Policy    *string     `json:"policy"`
	Threshold *int        `json:"threshold"`
	HashBits  *int        `json:"hashBits"`
}

// Compare groups precomputed perceptual hashes into duplicate sets and
// similarity groups.
func (h *ClusterHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cfg := (&configOverride{
		Policy:              req.Policy,
		SimilarityThreshold: req.Threshold,
		HashBits:            req.HashBits,
	}).apply(h.base)

	var errs validationErrors
	errs.validateBatch("hashes", len(req.Hashes))
	for i, e := range req.Hashes {
		if e.URL == "" {
			errs.add(fmt.Sprintf("hashes[%d].url", i), "is required")
		}
	}
	errs.validateConfig("config", cfg)
	if errs.respond(w) {
		return
	}

	items := make([]cluster.Item, len(req.Hashes))
	for i, e := range req.Hashes {
		items[i] = cluster.Item{ID: e.URL, Hash: e.Hash}
	}

	res, err := cluster.ClusterHashes(items, cfg)
	if err != nil {
		h.logger.Error("hash clustering failed", "error", err)
		respondError(w, http.StatusInternalServerError, "clustering failed")
		return
	}

	albums := album.NewAssembler(h.names).AddHash(res).Albums()
	h.logger.Debug("compared hashes", "items", len(items), "albums", len(albums),
		"errors", len(res.Errors), "mismatches", res.Mismatches)
	respondJSON(w, http.StatusOK, newAlbumsResponse(albums, res.Errors))
}

type paletteEntry struct {
	URL     string          `json:"url"`
	Palette []string        `json:"palette"`
	Color   json.RawMessage `json:"color"`
	Tone    string          `json:"tone"`
}

type palettesRequest struct {
	Data       []paletteEntry `json:"data"`
	Strategy   *string        `json:"strategy"`
	BucketSize *int           `json:"bucketSize"`
	WithTone   *bool          `json:"withTone"`
	Threshold  *float64       `json:"threshold"`
}

// Palettes groups images by dominant colour into moodboards. Unlike the
// general cluster endpoint it defaults to the bucket strategy.
func (h *ClusterHandler) Palettes(w http.ResponseWriter, r *http.Request) {
	var req palettesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	base := h.base
	base.ColorStrategy = cluster.StrategyBucket
	cfg := (&configOverride{
		ColorStrategy:  req.Strategy,
		BucketSize:     req.BucketSize,
		BucketWithTone: req.WithTone,
		ColorThreshold: req.Threshold,
	}).apply(base)

	var errs validationErrors
	errs.validateBatch("data", len(req.Data))
	for i, e := range req.Data {
		if e.URL == "" {
			errs.add(fmt.Sprintf("data[%d].url", i), "is required")
		}
	}
	errs.validateConfig("config", cfg)
	if errs.respond(w) {
		return
	}

	items := make([]cluster.Item, len(req.Data))
	for i, e := range req.Data {
		items[i] = cluster.Item{ID: e.URL, Palette: e.Palette, Tone: e.Tone}.WithRawColor(e.Color)
	}

	res, err := cluster.ClusterColors(items, cfg)
	if err != nil {
		h.logger.Error("colour clustering failed", "error", err)
		respondError(w, http.StatusInternalServerError, "clustering failed")
		return
	}

	albums := album.NewAssembler(h.names).AddColor(res).Albums()
	h.logger.Debug("grouped palettes", "items", len(items), "strategy", cfg.ColorStrategy, "albums", len(albums))
	respondJSON(w, http.StatusOK, newAlbumsResponse(albums, res.Errors))
}

type clusterRequest struct {
	Items  []cluster.Item  `json:"items"`
	Config *configOverride `json:"config"`
}

// Cluster runs both engines over mixed items and returns every album.
func (h *ClusterHandler) Cluster(w http.ResponseWriter, r *http.Request) {
	var req clusterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cfg := req.Config.apply(h.base)

	var errs validationErrors
	errs.validateBatch("items", len(req.Items))
	for i, item := range req.Items {
		if item.ID == "" {
			errs.add(fmt.Sprintf("items[%d].id", i), "is required")
		}
	}
	errs.validateConfig("config", cfg)
	if errs.respond(w) {
		return
	}

	res, err := cluster.Run(req.Items, cfg)
	if err != nil {
		h.logger.Error("clustering failed", "error", err)
		respondError(w, http.StatusInternalServerError, "clustering failed")
		return
	}

	albums := album.NewAssembler(h.names).AddHash(res.Hash).AddColor(res.Color).Albums()
	h.logger.Debug("clustered items", "items", len(req.Items), "albums", len(albums), "errors", len(res.Errors))
	respondJSON(w, http.StatusOK, newAlbumsResponse(albums, res.Errors))
}
