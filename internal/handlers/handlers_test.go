package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"photo-browser/internal/afpoints"
	"photo-browser/internal/collection"
	"photo-browser/internal/config"
	"photo-browser/internal/dispatch"
	"photo-browser/internal/metadata"
	"photo-browser/internal/pipeline"
	"photo-browser/internal/record"

	"github.com/gorilla/mux"
)

type fakePipeline struct {
	mu        sync.Mutex
	restarted []*record.Record
	err       error
}

func (f *fakePipeline) Restart(r *record.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.restarted = append(f.restarted, r)
	return nil
}

func (f *fakePipeline) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.restarted)
}

type fakeClock struct {
	last time.Time
	err  error
}

func (f fakeClock) LastScan(context.Context) (time.Time, error) {
	return f.last, f.err
}

type testEnv struct {
	h       *Handlers
	library *collection.Collection
	pipe    *fakePipeline
	events  *Events
	router  *mux.Router
	root    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	root := t.TempDir()
	library, err := collection.New(context.Background(), collection.Options{
		Root: root,
		Mode: record.ViewMode{CombineRawJPEG: true},
	})
	if err != nil {
		t.Fatalf("collection.New failed: %v", err)
	}
	t.Cleanup(library.Close)

	ctx, cancel := context.WithCancel(context.Background())
	loop := dispatch.New(0)
	go loop.Run(ctx)
	t.Cleanup(func() {
		cancel()
		loop.Wait()
	})

	env := &testEnv{
		library: library,
		pipe:    &fakePipeline{},
		events:  NewEvents(),
		root:    root,
	}
	env.h = New(library, env.pipe, loop, env.events,
		fakeClock{last: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)},
		&config.Config{ThumbnailHeight: 60})
	env.router = testRouter(env.h, env.events)
	return env
}

func testRouter(h *Handlers, events *Events) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/items", h.ListItems).Methods("GET")
	api.HandleFunc("/items/{id}", h.GetItem).Methods("GET")
	api.HandleFunc("/items/{id}/thumbnail", h.GetThumbnail).Methods("GET")
	api.HandleFunc("/items/{id}/afpoints", h.GetAFPoints).Methods("GET")
	api.HandleFunc("/items/{id}/checked", h.SetChecked).Methods("PUT")
	api.HandleFunc("/items/{id}/decode", h.RestartDecode).Methods("POST")
	api.Handle("/events", events).Methods("GET")
	return r
}

func (e *testEnv) add(t *testing.T, name string) *record.Record {
	t.Helper()
	r, ok := e.library.Add(filepath.Join(e.root, name))
	if !ok {
		t.Fatalf("Add(%s) failed", name)
	}
	return r
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestListItems(t *testing.T) {
	env := newTestEnv(t)
	env.add(t, "b.jpg")
	env.add(t, "a.cr2")
	env.add(t, "a.jpg")

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantNames []string
	}{
		{"Collection mode combines pairs", "", http.StatusOK, []string{"a.jpg", "b.jpg"}},
		{"Separate override", "?combine=false", http.StatusOK, []string{"a.cr2", "a.jpg", "b.jpg"}},
		{"Invalid override", "?combine=maybe", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do("GET", "/api/items"+tt.query, "")
			if w.Code != tt.wantCode {
				t.Fatalf("Expected status %d, got %d", tt.wantCode, w.Code)
			}
			if tt.wantNames == nil {
				return
			}

			var list ItemList
			if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if list.Total != len(tt.wantNames) {
				t.Fatalf("Expected %d items, got %d", len(tt.wantNames), list.Total)
			}
			for i, name := range tt.wantNames {
				if list.Items[i].Name != name {
					t.Errorf("Expected item %d to be %s, got %s", i, name, list.Items[i].Name)
				}
			}
		})
	}
}

func TestGetItem(t *testing.T) {
	env := newTestEnv(t)
	raw := env.add(t, "IMG_1.CR2")
	jpg := env.add(t, "IMG_1.JPG")
	jpg.SetChecked(record.Checked, record.ViewMode{})

	w := env.do("GET", "/api/items/"+raw.ID().String(), "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var item Item
	if err := json.NewDecoder(w.Body).Decode(&item); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if item.Kind != "raw" || item.State != "unknown" {
		t.Errorf("Unexpected item: %+v", item)
	}
	if item.Neighbor != jpg.ID().String() {
		t.Errorf("Expected neighbor %s, got %s", jpg.ID(), item.Neighbor)
	}
	if item.Checked != "checked" {
		t.Errorf("Expected RAW to present its sibling's mark in combine mode, got %s", item.Checked)
	}

	if w := env.do("GET", "/api/items/not-a-uuid", ""); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid id, got %d", w.Code)
	}
	unknown := record.ID(filepath.Join(env.root, "missing.jpg"))
	if w := env.do("GET", "/api/items/"+unknown.String(), ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown id, got %d", w.Code)
	}
}

func TestGetThumbnail(t *testing.T) {
	env := newTestEnv(t)
	withThumb := env.add(t, "a.jpg")
	withThumb.SetThumbnail(image.NewRGBA(image.Rect(0, 0, 200, 100)))
	without := env.add(t, "b.jpg")

	tests := []struct {
		name       string
		target     string
		wantCode   int
		wantWidth  int
		wantHeight int
	}{
		{"Requested height", "/api/items/" + withThumb.ID().String() + "/thumbnail?height=50", http.StatusOK, 100, 50},
		{"Default height", "/api/items/" + withThumb.ID().String() + "/thumbnail", http.StatusOK, 120, 60},
		{"Placeholder", "/api/items/" + without.ID().String() + "/thumbnail?height=32", http.StatusOK, 32, 32},
		{"Zero height", "/api/items/" + withThumb.ID().String() + "/thumbnail?height=0", http.StatusBadRequest, 0, 0},
		{"Too tall", "/api/items/" + withThumb.ID().String() + "/thumbnail?height=100000", http.StatusBadRequest, 0, 0},
		{"Not a number", "/api/items/" + withThumb.ID().String() + "/thumbnail?height=tall", http.StatusBadRequest, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do("GET", tt.target, "")
			if w.Code != tt.wantCode {
				t.Fatalf("Expected status %d, got %d", tt.wantCode, w.Code)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
				t.Errorf("Expected image/jpeg, got %s", ct)
			}
			cfg, err := jpeg.DecodeConfig(bytes.NewReader(w.Body.Bytes()))
			if err != nil {
				t.Fatalf("Response is not a JPEG: %v", err)
			}
			if cfg.Width != tt.wantWidth || cfg.Height != tt.wantHeight {
				t.Errorf("Expected %dx%d, got %dx%d", tt.wantWidth, tt.wantHeight, cfg.Width, cfg.Height)
			}
		})
	}
}

func TestGetAFPoints(t *testing.T) {
	env := newTestEnv(t)
	plain := env.add(t, "a.cr2")
	canon := env.add(t, "b.cr2")
	canon.SetExif(metadata.NewTags().
		SetString(metadata.TagModel, "Canon EOS 90D").
		SetInt(metadata.TagAFValidPoints, 1).
		SetInt(metadata.TagAFCanonImageWidth, 6000).
		SetInt(metadata.TagAFCanonImageHeight, 4000).
		SetInt(metadata.TagAFAreaWidths, 100).
		SetInt(metadata.TagAFAreaHeights, 100).
		SetInt(metadata.TagAFXPositions, 0).
		SetInt(metadata.TagAFYPositions, 0).
		SetInt(metadata.TagAFPointsInFocus, 1).
		SetInt(metadata.TagAFFineRotation, 250))

	if w := env.do("GET", "/api/items/"+plain.ID().String()+"/afpoints", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without metadata, got %d", w.Code)
	}

	w := env.do("GET", "/api/items/"+canon.ID().String()+"/afpoints", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var overlay AFOverlay
	if err := json.NewDecoder(w.Body).Decode(&overlay); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if overlay.Width != 6000 || overlay.Height != 4000 {
		t.Errorf("Expected 6000x4000 reference size, got %dx%d", overlay.Width, overlay.Height)
	}
	if len(overlay.Points) != 1 || overlay.Points[0].Width != 100 {
		t.Errorf("Unexpected points: %+v", overlay.Points)
	}
	if len(overlay.Points) == 1 && overlay.Points[0].Class != afpoints.HasFocus {
		t.Errorf("Expected class has_focus, got %s", overlay.Points[0].Class)
	}
	if overlay.FineRotation == nil || *overlay.FineRotation != 2.5 {
		t.Errorf("Expected fine rotation 2.5, got %v", overlay.FineRotation)
	}
}

func TestSetChecked(t *testing.T) {
	env := newTestEnv(t)
	raw := env.add(t, "IMG_2.CR2")
	jpg := env.add(t, "IMG_2.JPG")
	target := "/api/items/" + raw.ID().String() + "/checked"

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"Invalid JSON", "{", http.StatusBadRequest},
		{"Missing state", "{}", http.StatusBadRequest},
		{"Unknown state", `{"state":"maybe"}`, http.StatusBadRequest},
		{"Checked", `{"state":"checked"}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := env.do("PUT", target, tt.body); w.Code != tt.wantCode {
				t.Errorf("Expected status %d, got %d", tt.wantCode, w.Code)
			}
		})
	}

	separate := record.ViewMode{}
	if raw.Checked(separate) != record.Checked || jpg.Checked(separate) != record.Checked {
		t.Error("Expected combine mode to mark both siblings")
	}
}

func TestRestartDecode(t *testing.T) {
	env := newTestEnv(t)
	r := env.add(t, "a.jpg")
	target := "/api/items/" + r.ID().String() + "/decode"

	if w := env.do("POST", target, ""); w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d", w.Code)
	}
	if len(env.pipe.restarted) != 1 || env.pipe.restarted[0] != r {
		t.Errorf("Expected one restart of the record, got %d", len(env.pipe.restarted))
	}

	env.pipe.err = pipeline.ErrStopped
	if w := env.do("POST", target, ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 once the pipeline stopped, got %d", w.Code)
	}

	env.pipe.err = errors.New("queue exploded")
	if w := env.do("POST", target, ""); w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 for other errors, got %d", w.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)
	env.add(t, "a.jpg")

	w := env.do("GET", "/healthz", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 before the initial scan, got %d", w.Code)
	}

	env.h.MarkReady()
	w = env.do("GET", "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 once ready, got %d", w.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != statusHealthy || resp.Items != 1 {
		t.Errorf("Unexpected health response: %+v", resp)
	}
	if resp.LastScan != "2026-10-01T12:00:00Z" {
		t.Errorf("Expected last scan time, got %q", resp.LastScan)
	}
}

func TestLivenessCheck(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/livez", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "alive") {
		t.Errorf("Unexpected GET response: %d %s", w.Code, w.Body.String())
	}

	w = env.do("HEAD", "/livez", "")
	if w.Code != http.StatusOK || w.Body.Len() != 0 {
		t.Errorf("Expected empty HEAD response, got %d bytes", w.Body.Len())
	}
}

func TestGetVersion(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/version", "")
	var info config.BuildInfo
	if err := json.NewDecoder(w.Body).Decode(&info); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if info.Version != config.Version {
		t.Errorf("Expected version %s, got %s", config.Version, info.Version)
	}
}
