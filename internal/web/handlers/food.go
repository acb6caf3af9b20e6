package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/kozaktomas/photo-grouper/internal/labels"
)

// FoodDetector labels an image and picks out the food.
type FoodDetector interface {
	Detect(ctx context.Context, image []byte) (*labels.Detection, error)
}

// FoodHandler handles the food detection endpoint.
type FoodHandler struct {
	detector FoodDetector
	logger   hclog.Logger
}

// NewFoodHandler creates a new food handler. A nil detector makes the
// endpoint answer 503.
func NewFoodHandler(detector FoodDetector, logger hclog.Logger) *FoodHandler {
	return &FoodHandler{
		detector: detector,
		logger:   logger.Named("food"),
	}
}

type detectFoodRequest struct {
	Image string `json:"image"`
}

// DetectFood labels a base64 image and returns the food labels among them.
func (h *FoodHandler) DetectFood(w http.ResponseWriter, r *http.Request) {
	var req detectFoodRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var errs validationErrors
	var img []byte
	if strings.TrimSpace(req.Image) == "" {
		errs.add("image", "is required")
	} else if res, err := decodeImageInput(req.Image); err != nil {
		errs.add("image", "%v", err)
	} else {
		img = res.Data
	}
	if errs.respond(w) {
		return
	}

	if h.detector == nil {
		respondError(w, http.StatusServiceUnavailable, "label detection is not configured")
		return
	}

	detection, err := h.detector.Detect(r.Context(), img)
	if err != nil {
		if errors.Is(err, labels.ErrNoProvider) {
			respondError(w, http.StatusServiceUnavailable, "label detection is not configured")
			return
		}
		h.logger.Error("food detection failed", "error", err)
		respondError(w, http.StatusBadGateway, "failed to detect labels")
		return
	}

	respondJSON(w, http.StatusOK, detection)
}
