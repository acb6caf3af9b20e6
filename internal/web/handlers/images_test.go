package handlers

import (
	"encoding/base64"
	"errors"
	"image/color"
	"net/http"
	"net/http/httptest"
	"reflect"
	"regexp"
	"testing"

	"github.com/kozaktomas/photo-grouper/internal/album"
	"github.com/kozaktomas/photo-grouper/internal/cluster"
)

func dataURI(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func TestImagesHandler_Hash(t *testing.T) {
	red := solidPNG(t, color.RGBA{R: 255, A: 255})
	h := newTestImagesHandler(t, mapFetcher{
		"https://img/red.png": red,
		"https://img/junk":    []byte("definitely not an image"),
	}, newMemStore())

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{"ok", map[string]string{"url": "https://img/red.png"}, http.StatusOK},
		{"missing url", map[string]string{}, http.StatusBadRequest},
		{"fetch failure", map[string]string{"url": "https://img/missing.png"}, http.StatusBadGateway},
		{"not an image", map[string]string{"url": "https://img/junk"}, http.StatusUnprocessableEntity},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			h.Hash(recorder, jsonRequest(t, http.MethodPost, "/api/hash", tc.body))
			assertStatusCode(t, recorder, tc.wantStatus)

			if tc.wantStatus != http.StatusOK {
				return
			}
			var got hashResponse
			parseJSONResponse(t, recorder, &got)
			if got.URL != "https://img/red.png" {
				t.Errorf("url = %s", got.URL)
			}
			if !regexp.MustCompile(`^[0-9a-f]{16}$`).MatchString(got.Hash) {
				t.Errorf("hash %q is not 64-bit hex", got.Hash)
			}
		})
	}
}

func TestImagesHandler_Color(t *testing.T) {
	h := newTestImagesHandler(t, mapFetcher{
		"https://img/red.png": solidPNG(t, color.RGBA{R: 250, G: 10, B: 10, A: 255}),
	}, newMemStore())

	recorder := httptest.NewRecorder()
	body := map[string]any{"urls": []string{"https://img/red.png", "https://img/missing.png"}}
	h.Color(recorder, jsonRequest(t, http.MethodPost, "/api/color", body))
	assertStatusCode(t, recorder, http.StatusOK)

	var got struct {
		Results []struct {
			URL     string   `json:"url"`
			Palette []string `json:"palette"`
			Tone    string   `json:"tone"`
		} `json:"results"`
		Errors []struct {
			ID   string            `json:"id"`
			Kind cluster.ErrorKind `json:"kind"`
		} `json:"errors"`
	}
	parseJSONResponse(t, recorder, &got)

	if len(got.Results) != 1 || got.Results[0].URL != "https://img/red.png" {
		t.Fatalf("unexpected results %+v", got.Results)
	}
	if len(got.Results[0].Palette) == 0 || got.Results[0].Palette[0] != "#fa0a0a" {
		t.Errorf("palette = %v", got.Results[0].Palette)
	}
	if got.Results[0].Tone == "" {
		t.Error("tone is empty")
	}
	if len(got.Errors) != 1 || got.Errors[0].Kind != cluster.KindFetchFailed {
		t.Errorf("unexpected errors %+v", got.Errors)
	}
}

func TestImagesHandler_Color_Validation(t *testing.T) {
	h := newTestImagesHandler(t, mapFetcher{}, newMemStore())

	recorder := httptest.NewRecorder()
	h.Color(recorder, jsonRequest(t, http.MethodPost, "/api/color", map[string]any{"urls": []string{"https://x", " "}}))
	assertStatusCode(t, recorder, http.StatusBadRequest)
	if got := validationFields(t, recorder); !reflect.DeepEqual(got, []string{"urls[1]"}) {
		t.Errorf("fields = %v", got)
	}
}

func TestImagesHandler_ProcessImages(t *testing.T) {
	red := solidPNG(t, color.RGBA{R: 255, A: 255})
	store := newMemStore()
	h := newTestImagesHandler(t, mapFetcher{"https://img/red.png": red}, store)

	body := map[string]any{
		"colors": true,
		"images": []string{
			"https://img/red.png",
			dataURI("image/png", red),
			dataURI("text/plain", []byte("hello")),
		},
	}

	recorder := httptest.NewRecorder()
	h.ProcessImages(recorder, jsonRequest(t, http.MethodPost, "/api/processImages", body))
	assertStatusCode(t, recorder, http.StatusOK)

	var got albumsBody
	parseJSONResponse(t, recorder, &got)

	if len(store.objects) != 1 {
		t.Fatalf("expected one stored object, got %d", len(store.objects))
	}
	var storedURL string
	for name := range store.objects {
		storedURL = "/media/" + name
		if !regexp.MustCompile(`^image_[0-9a-f-]{36}_2\.png$`).MatchString(name) {
			t.Errorf("unexpected object name %s", name)
		}
	}

	if len(got.Albums) != 2 {
		t.Fatalf("expected a duplicate set and a moodboard, got %+v", got.Albums)
	}
	wantPhotos := []string{"https://img/red.png", storedURL}
	for i, kind := range []album.Kind{album.KindDuplicate, album.KindMoodboard} {
		if got.Albums[i].Kind != kind || !reflect.DeepEqual(got.Albums[i].Photos, wantPhotos) {
			t.Errorf("album %d = %+v; want %s of %v", i, got.Albums[i], kind, wantPhotos)
		}
	}

	if len(got.Errors) != 1 || got.Errors[0].ID != "images[2]" || got.Errors[0].Kind != cluster.KindInvalidFormat {
		t.Errorf("unexpected errors %+v", got.Errors)
	}
}

func TestImagesHandler_ProcessImages_StorageFailure(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("disk full")
	h := newTestImagesHandler(t, mapFetcher{}, store)

	recorder := httptest.NewRecorder()
	body := map[string]any{"images": []string{dataURI("image/png", solidPNG(t, color.RGBA{A: 255}))}}
	h.ProcessImages(recorder, jsonRequest(t, http.MethodPost, "/api/processImages", body))
	assertStatusCode(t, recorder, http.StatusOK)

	var got albumsBody
	parseJSONResponse(t, recorder, &got)
	if len(got.Albums) != 0 {
		t.Errorf("expected no albums, got %+v", got.Albums)
	}
	if len(got.Errors) != 1 || got.Errors[0].Kind != cluster.KindStorageFailed {
		t.Errorf("unexpected errors %+v", got.Errors)
	}
}

func TestImagesHandler_ProcessImages_Validation(t *testing.T) {
	h := newTestImagesHandler(t, mapFetcher{}, newMemStore())

	recorder := httptest.NewRecorder()
	body := map[string]any{"images": []string{}, "config": map[string]any{"policy": "random"}}
	h.ProcessImages(recorder, jsonRequest(t, http.MethodPost, "/api/processImages", body))
	assertStatusCode(t, recorder, http.StatusBadRequest)
	if got := validationFields(t, recorder); !reflect.DeepEqual(got, []string{"images", "config"}) {
		t.Errorf("fields = %v", got)
	}
}

func TestDecodeImageInput(t *testing.T) {
	png := solidPNG(t, color.RGBA{G: 255, A: 255})

	tests := []struct {
		name    string
		input   string
		wantCT  string
		wantErr bool
	}{
		{"data URI", dataURI("image/png", png), "image/png", false},
		{"bare base64", base64.StdEncoding.EncodeToString(png), "image/png", false},
		{"mislabelled data URI", dataURI("application/octet-stream", png), "image/png", false},
		{"text payload", dataURI("text/plain", []byte("hi")), "", true},
		{"broken base64", "!!!", "", true},
		{"empty data URI", "data:image/png;base64,", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := decodeImageInput(tc.input)
			if (err != nil) != tc.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tc.wantErr)
			}
			if !tc.wantErr && res.ContentType != tc.wantCT {
				t.Errorf("content type = %s; want %s", res.ContentType, tc.wantCT)
			}
		})
	}
}

func TestIsRemoteURL(t *testing.T) {
	for input, want := range map[string]bool{
		"https://a/b.jpg":       true,
		"HTTP://a/b.jpg":        true,
		"data:image/png;base64": false,
		"iVBORw0KGgo=":          false,
		"ftp://a/b.jpg":         false,
	} {
		if got := isRemoteURL(input); got != want {
			t.Errorf("isRemoteURL(%q) = %v", input, got)
		}
	}
}
