package handlers

import (
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"path/filepath"
	"strconv"

	"photo-browser/internal/afpoints"
	"photo-browser/internal/logging"
	"photo-browser/internal/pipeline"
	"photo-browser/internal/record"

	"github.com/disintegration/imaging"
)

const (
	maxThumbnailHeight = 4096
	jpegQuality        = 85
)

// Item is the JSON view of a record.
type Item struct {
	ID          string `json:"id"`
	Path        string `json:"path"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	State       string `json:"state"`
	Error       string `json:"error,omitempty"`
	Checked     string `json:"checked"`
	Neighbor    string `json:"neighbor,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Orientation string `json:"orientation"`
}

// ItemList is the response of ListItems.
type ItemList struct {
	Items   []Item `json:"items"`
	Total   int    `json:"total"`
	Combine bool   `json:"combine"`
}

func newItem(r *record.Record, mode record.ViewMode) Item {
	item := Item{
		ID:          r.ID().String(),
		Path:        r.Path(),
		Name:        filepath.Base(r.Path()),
		Kind:        string(r.Kind()),
		State:       r.State().String(),
		Error:       r.ErrorMessage(),
		Checked:     r.Checked(mode).String(),
		Orientation: r.Orientation().String(),
	}
	if n := r.Neighbor(); n != nil {
		item.Neighbor = n.ID().String()
	}
	size := r.OrientedSize(r.Size())
	item.Width, item.Height = size.X, size.Y
	return item
}

// ListItems returns the visible items, sorted by name
func (h *Handlers) ListItems(w http.ResponseWriter, r *http.Request) {
	mode, ok := h.viewMode(r)
	if !ok {
		writeJSONError(w, "Invalid combine parameter", http.StatusBadRequest)
		return
	}

	records := h.library.Items(mode)
	items := make([]Item, 0, len(records))
	for _, rec := range records {
		items = append(items, newItem(rec, mode))
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, ItemList{Items: items, Total: len(items), Combine: mode.CombineRawJPEG})
}

// GetItem returns a single item
func (h *Handlers) GetItem(w http.ResponseWriter, r *http.Request) {
	rec := h.lookup(w, r)
	if rec == nil {
		return
	}
	mode, ok := h.viewMode(r)
	if !ok {
		writeJSONError(w, "Invalid combine parameter", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, newItem(rec, mode))
}

// GetThumbnail renders the oriented thumbnail at the requested height as a
// JPEG. Items without a thumbnail yet get a placeholder.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	rec := h.lookup(w, r)
	if rec == nil {
		return
	}

	height := h.thumbnailHeight
	if value := r.URL.Query().Get("height"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 || parsed > maxThumbnailHeight {
			writeJSONError(w, "Invalid height", http.StatusBadRequest)
			return
		}
		height = parsed
	}

	// icon sources and the thumbnail cache are used from the loop only
	var img image.Image
	if err := h.loop.Do(r.Context(), func() {
		img = rec.ThumbnailTransformed(height)
	}); err != nil {
		logging.Debug("thumbnail for %s abandoned: %v", rec.Path(), err)
		writeJSONError(w, "Thumbnail unavailable", http.StatusServiceUnavailable)
		return
	}
	if img == nil {
		writeJSONError(w, "Thumbnail unavailable", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	if err := imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		logging.Error("failed to encode thumbnail for %s: %v", rec.Path(), err)
	}
}

// AFPoint is the JSON view of one autofocus area.
type AFPoint struct {
	Class  afpoints.Classification `json:"class"`
	X      int                     `json:"x"`
	Y      int                     `json:"y"`
	Width  int                     `json:"width"`
	Height int                     `json:"height"`
}

// AFOverlay is the response of GetAFPoints. Coordinates are in the
// reference image space given by Width and Height.
type AFOverlay struct {
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	FineRotation *float64  `json:"fineRotation,omitempty"`
	Points       []AFPoint `json:"points"`
}

// GetAFPoints returns the autofocus overlay of an item
func (h *Handlers) GetAFPoints(w http.ResponseWriter, r *http.Request) {
	rec := h.lookup(w, r)
	if rec == nil {
		return
	}

	overlay, ok := rec.AFPoints()
	if !ok {
		writeJSONError(w, "No autofocus data", http.StatusNotFound)
		return
	}

	resp := AFOverlay{
		Width:  overlay.Size.X,
		Height: overlay.Size.Y,
		Points: make([]AFPoint, 0, len(overlay.Points)),
	}
	if deg, ok := rec.AFFineRotation(); ok {
		resp.FineRotation = &deg
	}
	for _, p := range overlay.Points {
		resp.Points = append(resp.Points, AFPoint{
			Class:  p.Class,
			X:      p.Rect.Min.X,
			Y:      p.Rect.Min.Y,
			Width:  p.Rect.Dx(),
			Height: p.Rect.Dy(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp)
}

// CheckedRequest is the body of SetChecked.
type CheckedRequest struct {
	State *record.CheckState `json:"state"`
}

// SetChecked stores the check mark of an item. In combine mode marking a
// RAW file with a processed sibling marks both.
func (h *Handlers) SetChecked(w http.ResponseWriter, r *http.Request) {
	rec := h.lookup(w, r)
	if rec == nil {
		return
	}

	var req CheckedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.State == nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	mode := h.library.Mode()
	rec.SetChecked(*req.State, mode)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, newItem(rec, mode))
}

// RestartDecode cancels any running decode of an item and queues it again
func (h *Handlers) RestartDecode(w http.ResponseWriter, r *http.Request) {
	rec := h.lookup(w, r)
	if rec == nil {
		return
	}

	if err := h.pipeline.Restart(rec); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrStopped) {
			status = http.StatusServiceUnavailable
		}
		writeJSONError(w, err.Error(), status)
		return
	}

	writeJSONStatus(w, newItem(rec, h.library.Mode()), http.StatusAccepted)
}
