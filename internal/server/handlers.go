// Package server serves a generated tile tree over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const etagCap = 64

// layerInfo is returned by HandleLayer.
type layerInfo struct {
	Ext  string `json:"ext"`
	Zoom int    `json:"zoom"`
}

// HandleLayer serves the layer parameters the front end needs to build tile URLs.
func (s *ServerContext) HandleLayer(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(layerInfo{Ext: s.Ext, Zoom: s.Zoom})
}

// HandleTile serves /{z}/{x}/{y}.{ext} and /null.{ext}. A well-formed tile
// request for a tile that was never written gets the null tile, so the
// front end always receives a valid collection.
func (s *ServerContext) HandleTile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	// Null tile
	if len(parts) == 1 && parts[0] == "null."+s.Ext {
		s.serveNull(w, r)
		return
	}

	if len(parts) != 3 {
		http.NotFound(w, r)
		return
	}

	// parts: z, x, y.ext
	y, ok := strings.CutSuffix(parts[2], "."+s.Ext)
	if !ok || !isIndex(parts[0]) || !isIndex(parts[1]) || !isIndex(y) {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(s.Root, parts[0], parts[1], y+"."+s.Ext)
	if s.serveFile(w, r, path, s.ContentType) {
		return
	}

	s.serveNull(w, r)
}

func (s *ServerContext) serveNull(w http.ResponseWriter, r *http.Request) {
	if s.serveFile(w, r, s.nullPath(), s.ContentType) {
		return
	}

	w.Header().Set("Content-Type", s.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(emptyCollection)
}

// serveFile tries to serve a file from disk with ETag generation.
// It returns true if the file was found and served (or 304).
func (s *ServerContext) serveFile(w http.ResponseWriter, r *http.Request, path string, contentType string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}

	buf := make([]byte, 0, etagCap)
	buf = append(buf, '"')
	buf = strconv.AppendInt(buf, info.Size(), 16)
	buf = append(buf, '-')
	buf = strconv.AppendInt(buf, info.ModTime().UnixNano(), 16)
	buf = append(buf, '"')
	etag := string(buf)

	// check If-None-Match (client sent ETag)
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	http.ServeFile(w, r, path)
	return true
}

// isIndex accepts non-empty decimal tile indexes only, which keeps request
// paths inside the tile tree.
func isIndex(s string) bool {
	if s == "" || len(s) > 10 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
