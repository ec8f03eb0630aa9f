// Package server handles HTTP requests and middleware.
package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/woozymasta/rotfarm/internal/preview"

	"github.com/rs/zerolog/log"
)

const geoJSONContentType = "application/geo+json"

// Routes registers all handlers on a new mux.
func (s *ServerContext) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/farms", s.HandleFarms)
	mux.HandleFunc("GET /api/farms/{id}", s.HandleFarm)
	mux.HandleFunc("GET /api/stats", s.HandleStats)
	mux.HandleFunc("GET /api/preview.webp", s.HandlePreview)
	return mux
}

// HandleFarms serves the whole processed collection.
func (s *ServerContext) HandleFarms(w http.ResponseWriter, r *http.Request) {
	if match := r.Header.Get("If-None-Match"); match == s.ETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", geoJSONContentType)
	w.Header().Set("ETag", s.ETag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(s.Data)
}

// HandleFarm serves a single feature by its id.
func (s *ServerContext) HandleFarm(w http.ResponseWriter, r *http.Request) {
	feature, ok := s.Features[r.PathValue("id")]
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", geoJSONContentType)
	_, _ = w.Write(feature)
}

// HandleStats serves the collection summary.
func (s *ServerContext) HandleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(s.Summary)
}

// HandlePreview serves the rendered preview. The optional "width" query
// parameter requests a downscaled copy.
func (s *ServerContext) HandlePreview(w http.ResponseWriter, r *http.Request) {
	if s.Preview == nil {
		http.NotFound(w, r)
		return
	}

	width := 0
	if v := r.URL.Query().Get("width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid width", http.StatusBadRequest)
			return
		}
		width = n
	}

	w.Header().Set("Content-Type", "image/webp")

	if width == 0 || width >= s.PreviewImage.Bounds().Dx() {
		if match := r.Header.Get("If-None-Match"); match == s.PreviewETag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", s.PreviewETag)
		w.Header().Set("Cache-Control", "public, no-cache")
		_, _ = w.Write(s.Preview)
		return
	}

	var buf bytes.Buffer
	if err := preview.Encode(&buf, preview.Thumbnail(s.PreviewImage, width)); err != nil {
		log.Error().Err(err).Int("width", width).Msg("Failed to encode preview thumbnail")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(buf.Bytes())
}
