// Package geo handles geographic data structures, tile projection and bucketing.
package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

const (
	// TypeFeatureCollection is the required top-level tag of every document.
	TypeFeatureCollection = "FeatureCollection"
	// TypeFeature is the tag of a single feature.
	TypeFeature = "Feature"
)

var (
	// ErrNotFeatureCollection is returned when a document is not tagged FeatureCollection.
	ErrNotFeatureCollection = errors.New("document is not a FeatureCollection")
	// ErrNoFeatures is returned when a FeatureCollection has no features member, or it is null.
	ErrNoFeatures = errors.New("FeatureCollection has no features")
	// ErrNoCoordinates is returned when a feature has no usable properties.coordinates.
	ErrNoCoordinates = errors.New("feature has no coordinates")
)

// FeatureCollection represents a collection of geographic features.
// It follows the standard GeoJSON structure.
type FeatureCollection struct {
	Type     string    `json:"type" yaml:"type"`
	Features []Feature `json:"features" yaml:"features"`
}

// Feature represents a single geographic record.
// Geometry is kept as a generic JSON value and is never interpreted here.
type Feature struct {
	Type       string     `json:"type" yaml:"type"`
	Properties Properties `json:"properties" yaml:"properties"`
	Geometry   any        `json:"geometry" yaml:"geometry"`
	BBox       []float64  `json:"bbox,omitempty" yaml:"bbox,omitempty"`
}

// Properties is the open attribute map of a feature.
type Properties map[string]any

// Coordinates is the representative point of a feature, stored under
// properties.coordinates as a Wikidata globe-coordinate value.
type Coordinates struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// NewFeatureCollection returns a tagged collection holding features.
// A nil slice is replaced by an empty one so it serializes as [].
func NewFeatureCollection(features []Feature) FeatureCollection {
	if features == nil {
		features = []Feature{}
	}

	return FeatureCollection{Type: TypeFeatureCollection, Features: features}
}

// Name returns properties.name or an empty string.
func (p Properties) Name() string {
	s, _ := p["name"].(string)
	return s
}

// String returns a property as a string. Numbers are formatted without
// exponent so INSEE codes stored as integers compare as text.
func (p Properties) String(key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case int:
		return fmt.Sprintf("%d", v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// Coordinates resolves properties.coordinates strictly: the sub-record and
// both numeric fields must be present and finite.
func (p Properties) Coordinates() (Coordinates, error) {
	raw, ok := p["coordinates"]
	if !ok || raw == nil {
		return Coordinates{}, ErrNoCoordinates
	}

	var m map[string]any
	switch v := raw.(type) {
	case map[string]any:
		m = v
	case Properties:
		m = v
	case Coordinates:
		return v, nil
	default:
		return Coordinates{}, fmt.Errorf("%w: unexpected type %T", ErrNoCoordinates, raw)
	}

	lat, okLat := toFloat(m["latitude"])
	lng, okLng := toFloat(m["longitude"])
	if !okLat || !okLng {
		return Coordinates{}, fmt.Errorf("%w: latitude/longitude missing or not numeric", ErrNoCoordinates)
	}

	return Coordinates{Latitude: lat, Longitude: lng}, nil
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case json.Number:
		var err error
		if f, err = n.Float64(); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return f, true
}

// rawCollection tells an absent or null features member apart from [].
type rawCollection struct {
	Type     string     `json:"type"`
	Features *[]Feature `json:"features"`
}

// Decode reads a whole FeatureCollection document from r.
func Decode(r io.Reader) (FeatureCollection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return FeatureCollection{}, fmt.Errorf("read geojson: %w", err)
	}

	return Unmarshal(data)
}

// Unmarshal parses a FeatureCollection. Any other top-level type, a missing
// features list or trailing data after the document is an error.
func Unmarshal(data []byte) (FeatureCollection, error) {
	var raw rawCollection
	if err := json.Unmarshal(data, &raw); err != nil {
		return FeatureCollection{}, fmt.Errorf("decode geojson: %w", err)
	}

	if raw.Type != TypeFeatureCollection {
		return FeatureCollection{}, fmt.Errorf("%w: got type %q", ErrNotFeatureCollection, raw.Type)
	}

	if raw.Features == nil {
		return FeatureCollection{}, ErrNoFeatures
	}

	return NewFeatureCollection(*raw.Features), nil
}

// LoadFile reads the whole file into memory and decodes it.
func LoadFile(path string) (FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FeatureCollection{}, err
	}

	fc, err := Unmarshal(data)
	if err != nil {
		return FeatureCollection{}, fmt.Errorf("%s: %w", path, err)
	}

	return fc, nil
}

// SaveFile writes fc as JSON. A non-empty indent produces pretty output.
func SaveFile(path string, fc FeatureCollection, indent string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}

	if err := enc.Encode(fc); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}
