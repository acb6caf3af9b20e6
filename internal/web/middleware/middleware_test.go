package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
}

func TestCORS(t *testing.T) {
	handler := CORS([]string{"https://photos.example.com", " "})(okHandler())

	tests := []struct {
		name       string
		origin     string
		wantOrigin string
	}{
		{"whitelisted", "https://photos.example.com", "https://photos.example.com"},
		{"localhost", "http://localhost:5173", "http://localhost:5173"},
		{"localhost without port", "https://localhost", "https://localhost"},
		{"localhost as subdomain prefix", "http://localhost.attacker.example", ""},
		{"localhost prefix with port", "http://localhost.attacker.example:8080", ""},
		{"localhost userinfo", "http://localhost@attacker.example", ""},
		{"non-http scheme", "ftp://localhost", ""},
		{"unknown", "https://evil.example.com", ""},
		{"no origin", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q; want %q", got, tt.wantOrigin)
			}
			if got, want := rec.Header().Get("Access-Control-Allow-Credentials") == "true", tt.wantOrigin != ""; got != want {
				t.Errorf("Allow-Credentials set = %v; want %v", got, want)
			}
			if rec.Code != http.StatusTeapot {
				t.Errorf("request not passed through, status %d", rec.Code)
			}
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	handler := CORS(nil)(okHandler())
	req := httptest.NewRequest(http.MethodOptions, "/api/compare", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("missing Allow-Methods header")
	}
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{Output: &buf, JSONFormat: true, Level: hclog.Info})

	handler := AccessLog(logger)(okHandler())
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/hash", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if entry["path"] != "/api/hash" || entry["method"] != "POST" {
		t.Errorf("unexpected entry %v", entry)
	}
	if entry["status"] != float64(http.StatusTeapot) {
		t.Errorf("status = %v", entry["status"])
	}
}

func TestBodyLimit(t *testing.T) {
	var readErr error
	handler := BodyLimit(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("short")))
	if readErr != nil {
		t.Errorf("small body rejected: %v", readErr)
	}

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("much too long")))
	var maxErr *http.MaxBytesError
	if readErr == nil || !errors.As(readErr, &maxErr) {
		t.Errorf("expected MaxBytesError, got %v", readErr)
	}
}
