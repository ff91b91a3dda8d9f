package server

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/woozymasta/boundtiles/internal/processor"

	"github.com/rs/zerolog/log"
)

// emptyCollection is served when neither the tile nor the null tile exists.
var emptyCollection = []byte(`{"type":"FeatureCollection","features":[]}` + "\n")

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Root        string
	Ext         string
	ContentType string
	Zoom        int
}

// NewServerContext prepares a context serving the tile tree under root.
// It warns when the tree looks incomplete but never fails: tiles may be
// generated after the server starts.
func NewServerContext(root, ext string, zoom int) *ServerContext {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = processor.DefaultExtension
	}

	s := &ServerContext{
		Root:        root,
		Ext:         ext,
		Zoom:        zoom,
		ContentType: "application/geo+json",
	}
	if processor.FormatFor(ext) == "yaml" {
		s.ContentType = "application/yaml"
	}

	if _, err := os.Stat(s.nullPath()); os.IsNotExist(err) {
		log.Warn().
			Str("path", s.nullPath()).
			Msg("Null tile not found, serving a built-in empty collection")
	}

	zoomDir := filepath.Join(root, strconv.Itoa(zoom))
	if _, err := os.Stat(zoomDir); os.IsNotExist(err) {
		log.Warn().
			Str("path", zoomDir).
			Msg("No tiles for configured zoom level")
	}

	log.Info().
		Str("root", root).
		Str("ext", ext).
		Int("zoom", zoom).
		Msg("Server context initialized successfully")

	return s
}

func (s *ServerContext) nullPath() string {
	return filepath.Join(s.Root, processor.NullTile+"."+s.Ext)
}
