package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hashicorp/go-hclog"

	"github.com/kozaktomas/photo-grouper/internal/cluster"
	"github.com/kozaktomas/photo-grouper/internal/constants"
	"github.com/kozaktomas/photo-grouper/internal/fetch"
	"github.com/kozaktomas/photo-grouper/internal/storage"
)

// UploadHandler handles image upload and media endpoints.
type UploadHandler struct {
	store  storage.Store
	logger hclog.Logger
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(store storage.Store, logger hclog.Logger) *UploadHandler {
	return &UploadHandler{
		store:  store,
		logger: logger.Named("upload"),
	}
}

type uploadRequest struct {
	Images []string `json:"images"`
}

type uploadResponse struct {
	URLs   []string            `json:"urls"`
	Errors []cluster.ItemError `json:"errors"`
}

// Upload stores inline images and returns their URLs. It accepts a JSON body
// of data URIs or a multipart form with "files" parts.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		h.uploadMultipart(w, r)
		return
	}

	var req uploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var errs validationErrors
	switch {
	case len(req.Images) == 0:
		errs.add("images", "must contain at least one entry")
	case len(req.Images) > constants.MaxUploadImages:
		errs.add("images", "must not contain more than %d entries", constants.MaxUploadImages)
	}
	if errs.respond(w) {
		return
	}

	resp := uploadResponse{URLs: []string{}, Errors: []cluster.ItemError{}}
	for i, img := range req.Images {
		id := fmt.Sprintf("images[%d]", i)
		res, err := decodeImageInput(img)
		if err != nil {
			resp.Errors = append(resp.Errors, cluster.NewItemErrorKind(id, cluster.KindInvalidFormat, err))
			continue
		}
		url, err := storeInline(r.Context(), h.store, i+1, res)
		if err != nil {
			h.logger.Error("storing upload failed", "index", i, "error", err)
			resp.Errors = append(resp.Errors, cluster.NewItemErrorKind(id, cluster.KindStorageFailed, err))
			continue
		}
		resp.URLs = append(resp.URLs, url)
	}

	h.logger.Info("images uploaded", "stored", len(resp.URLs), "failed", len(resp.Errors))
	respondJSON(w, http.StatusOK, resp)
}

// readUploadedFile reads one multipart part into an inline resource.
func readUploadedFile(fileHeader *multipart.FileHeader) (*fetch.Resource, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %s", fileHeader.Filename)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.New("failed to read file")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: detected %s", errNotImage, contentType)
	}
	return &fetch.Resource{Data: data, ContentType: contentType}, nil
}

func (h *UploadHandler) uploadMultipart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(constants.MaxMultipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
			return
		}
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "no files provided")
		return
	}
	if len(files) > constants.MaxUploadImages {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("at most %d files are allowed", constants.MaxUploadImages))
		return
	}

	resp := uploadResponse{URLs: []string{}, Errors: []cluster.ItemError{}}
	for i, fileHeader := range files {
		id := filepath.Base(fileHeader.Filename)
		res, err := readUploadedFile(fileHeader)
		if err != nil {
			resp.Errors = append(resp.Errors, cluster.NewItemErrorKind(id, cluster.KindInvalidFormat, err))
			continue
		}
		url, err := storeInline(r.Context(), h.store, i+1, res)
		if err != nil {
			h.logger.Error("storing upload failed", "file", sanitizeForLog(id), "error", err)
			resp.Errors = append(resp.Errors, cluster.NewItemErrorKind(id, cluster.KindStorageFailed, err))
			continue
		}
		resp.URLs = append(resp.URLs, url)
	}

	h.logger.Info("files uploaded", "stored", len(resp.URLs), "failed", len(resp.Errors))
	respondJSON(w, http.StatusOK, resp)
}

// Media serves a stored object.
func (h *UploadHandler) Media(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	obj, err := h.store.Get(r.Context(), name)
	switch {
	case errors.Is(err, storage.ErrInvalidName):
		respondError(w, http.StatusBadRequest, "invalid media name")
		return
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, "media not found")
		return
	case err != nil:
		h.logger.Error("reading media failed", "name", sanitizeForLog(name), "error", err)
		respondError(w, http.StatusInternalServerError, "failed to read media")
		return
	}

	w.Header().Set("Content-Type", obj.ContentType)
	// Object names are unique per upload, so the bytes never change.
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(w, r, obj.Name, obj.CreatedAt, bytes.NewReader(obj.Data))
}
