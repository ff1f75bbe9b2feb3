package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"photo-browser/internal/logging"
	"photo-browser/internal/record"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, map[string]string{"error": message})
}

// writeJSONStatus writes v as JSON with the given status code.
func writeJSONStatus(w http.ResponseWriter, v interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, v)
}

// lookup resolves the {id} route variable to a live record. It writes the
// error response itself and returns nil when there is none.
func (h *Handlers) lookup(w http.ResponseWriter, r *http.Request) *record.Record {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeJSONError(w, "Invalid item id", http.StatusBadRequest)
		return nil
	}
	rec := h.library.ByID(id)
	if rec == nil || rec.Destroyed() {
		writeJSONError(w, "Item not found", http.StatusNotFound)
		return nil
	}
	return rec
}

// viewMode returns the collection's mode, overridden by a "combine" query
// parameter when present.
func (h *Handlers) viewMode(r *http.Request) (record.ViewMode, bool) {
	mode := h.library.Mode()
	value := r.URL.Query().Get("combine")
	if value == "" {
		return mode, true
	}
	combine, err := strconv.ParseBool(value)
	if err != nil {
		return mode, false
	}
	mode.CombineRawJPEG = combine
	return mode, true
}
