// Package enrich turns raw OSM boundary exports into municipality features
// and completes them with Wikidata attributes.
package enrich

import (
	"errors"
	"fmt"

	"github.com/woozymasta/boundtiles/internal/config"
	"github.com/woozymasta/boundtiles/internal/geo"
)

// ErrSkipped marks a feature dropped on purpose during sanitize.
var ErrSkipped = errors.New("feature skipped")

// Sanitizer reduces raw boundary features to the attributes the front end uses.
type Sanitizer struct {
	skip      map[string]struct{}
	overrides map[string]string
}

// NewSanitizer builds a sanitizer from the enrich configuration.
func NewSanitizer(cfg config.Enrich) *Sanitizer {
	s := &Sanitizer{
		skip:      make(map[string]struct{}, len(cfg.SkipNames)),
		overrides: make(map[string]string, len(cfg.CodeOverrides)),
	}
	for _, name := range cfg.SkipNames {
		s.skip[name] = struct{}{}
	}
	for name, code := range cfg.CodeOverrides {
		s.overrides[name] = code
	}

	return s
}

// Sanitize converts a raw export feature. Raw properties carry the OSM tags
// under "alltags"; only name, INSEE code, population and identifiers are kept,
// together with bbox and geometry. It returns ErrSkipped for names on the skip
// list and for features without an INSEE code.
func (s *Sanitizer) Sanitize(raw geo.Feature) (geo.Feature, error) {
	if raw.Type != geo.TypeFeature {
		return geo.Feature{}, fmt.Errorf("unexpected feature type %q", raw.Type)
	}

	props := raw.Properties
	tags, _ := props["alltags"].(map[string]any)
	tagProps := geo.Properties(tags)

	name := props.Name()
	out := geo.Feature{
		Type: geo.TypeFeature,
		Properties: geo.Properties{
			"name":       name,
			"insee":      tagProps.String("ref:INSEE"),
			"population": tagProps.String("population"),
			"osm":        props["id"],
			"wikidata":   props["wikidata"],
			"wikipedia":  props["wikipedia"],
		},
		BBox:     raw.BBox,
		Geometry: raw.Geometry,
	}

	if _, ok := s.skip[name]; ok {
		return geo.Feature{}, fmt.Errorf("%s: %w: on skip list", name, ErrSkipped)
	}

	if code, ok := s.overrides[name]; ok {
		out.Properties["insee"] = code
	}

	if out.Properties.String("insee") == "" {
		return geo.Feature{}, fmt.Errorf("%s (%v): %w: INSEE code not found", name, props["id"], ErrSkipped)
	}

	return out, nil
}
