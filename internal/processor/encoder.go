package processor

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/woozymasta/boundtiles/internal/geo"

	"gopkg.in/yaml.v3"
)

// DefaultExtension is used when the input file has no extension.
const DefaultExtension = "GeoJson"

// Encoder serializes a feature collection to a tile file.
type Encoder interface {
	Encode(w io.Writer, fc geo.FeatureCollection) error
	Name() string
}

// JSONEncoder writes compact JSON. Map keys are sorted by encoding/json, so
// the same input always produces the same bytes.
type JSONEncoder struct{}

// Name implements Encoder.
func (JSONEncoder) Name() string { return "json" }

// Encode implements Encoder.
func (JSONEncoder) Encode(w io.Writer, fc geo.FeatureCollection) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(fc)
}

// YAMLEncoder writes YAML documents.
type YAMLEncoder struct{}

// Name implements Encoder.
func (YAMLEncoder) Name() string { return "yaml" }

// Encode implements Encoder.
func (YAMLEncoder) Encode(w io.Writer, fc geo.FeatureCollection) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(fc); err != nil {
		return err
	}
	return enc.Close()
}

// EncoderFor returns the encoder registered under a format name.
func EncoderFor(format string) (Encoder, error) {
	switch strings.ToLower(format) {
	case "json", "geojson":
		return JSONEncoder{}, nil
	case "yaml", "yml":
		return YAMLEncoder{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// Extension returns the extension of path without the dot, mirroring the
// input naming (e.g. "GeoJson") for output tiles.
func Extension(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return DefaultExtension
	}
	return ext
}

// FormatFor guesses the output format from a file extension.
func FormatFor(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "yaml", "yml":
		return "yaml"
	default:
		return "json"
	}
}
