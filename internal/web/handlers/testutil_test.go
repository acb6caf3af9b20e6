package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-grouper/internal/config"
	"github.com/kozaktomas/photo-grouper/internal/fingerprint"
	"github.com/kozaktomas/photo-grouper/internal/logging"
	"github.com/kozaktomas/photo-grouper/internal/pipeline"
	"github.com/kozaktomas/photo-grouper/internal/storage"
)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Cluster: config.ClusterConfig{
			HashBits:            64,
			SimilarityThreshold: 6,
			ColorThreshold:      50,
			BucketSize:          96,
			Policy:              "best-fit",
			ColorStrategy:       "proximity",
		},
		Fetch: config.FetchConfig{Concurrency: 4},
		Albums: config.AlbumsConfig{
			Duplicate: "Duplicate Set",
			Similar:   "Similar Set",
			Moodboard: "Moodboard",
		},
	}
}

// jsonRequest creates a request with body encoded as JSON
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// solidPNG encodes a small single-colour image
func solidPNG(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := range 16 {
		for x := range 16 {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

// mapFetcher serves images from memory
type mapFetcher map[string][]byte

func (f mapFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	data, ok := f[url]
	if !ok {
		return nil, fmt.Errorf("fetching %s: status 404", url)
	}
	return data, nil
}

// memStore is an in-memory storage.Store
type memStore struct {
	mu      sync.Mutex
	objects map[string]*storage.Object
	err     error
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string]*storage.Object)}
}

func (s *memStore) Put(_ context.Context, name, contentType string, data []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = &storage.Object{Name: name, ContentType: contentType, Data: data, CreatedAt: time.Now()}
	return "/media/" + name, nil
}

func (s *memStore) Get(_ context.Context, name string) (*storage.Object, error) {
	if err := storage.ValidateName(name); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return obj, nil
}

func (s *memStore) Close() error { return nil }

// newTestImagesHandler wires an images handler around an in-memory fetcher and store
func newTestImagesHandler(t *testing.T, fetcher mapFetcher, store storage.Store) *ImagesHandler {
	t.Helper()
	hasher, err := fingerprint.NewImageHasher(fingerprint.AlgorithmPerception)
	if err != nil {
		t.Fatalf("failed to create hasher: %v", err)
	}
	p := pipeline.New(fetcher, hasher, fingerprint.NewHistogramExtractor(5), logging.Discard())
	return NewImagesHandler(testConfig(), p, fetcher, hasher, store, logging.Discard())
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%v'", expectedMessage, result["error"])
	}
}

// validationFields returns the field names of a 400 validation response
func validationFields(t *testing.T, recorder *httptest.ResponseRecorder) []string {
	t.Helper()
	var body struct {
		Details []fieldError `json:"details"`
	}
	parseJSONResponse(t, recorder, &body)
	fields := make([]string, len(body.Details))
	for i, d := range body.Details {
		fields[i] = d.Field
	}
	return fields
}
