package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/woozymasta/boundtiles/internal/geo"
	"github.com/woozymasta/boundtiles/internal/wikidata"

	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/rs/zerolog/log"
)

// AnnuaireURL prefixes the service-public.fr directory identifier (P6671).
const AnnuaireURL = "https://lannuaire.service-public.fr/"

// ErrNoWikidata is returned for features without a wikidata identifier.
var ErrNoWikidata = errors.New("feature has no wikidata id")

// Lookup is the part of the Wikidata client the enricher needs.
type Lookup interface {
	Entity(ctx context.Context, id string) (*wikidata.Entity, error)
	Thumbnail(ctx context.Context, file string) (string, error)
}

// Enricher completes features with population, coordinates, postal code,
// coat of arms and directory URL.
type Enricher struct {
	Lookup Lookup
	// Sanitizer, when set, is applied to every input feature first.
	Sanitizer *Sanitizer
	// CentroidFallback derives coordinates from the geometry when the
	// entity has none, so every output feature can be tiled.
	CentroidFallback bool
}

// Source is one input collection with its display name.
type Source struct {
	Name       string
	Collection geo.FeatureCollection
}

// Process sanitizes (if configured) and enriches every feature of every
// source, in order. Features that cannot be identified are dropped with a
// warning; API failures other than a missing entity abort the run.
func (e *Enricher) Process(ctx context.Context, sources []Source) ([]geo.Feature, error) {
	features := make([]geo.Feature, 0)

	for _, src := range sources {
		total := len(src.Collection.Features)
		for n, f := range src.Collection.Features {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			if e.Sanitizer != nil {
				clean, err := e.Sanitizer.Sanitize(f)
				if errors.Is(err, ErrSkipped) {
					log.Warn().Err(err).Str("source", src.Name).Msg("Feature dropped")
					continue
				}
				if err != nil {
					return nil, fmt.Errorf("%s feature %d: %w", src.Name, n+1, err)
				}
				f = clean
			}

			log.Info().
				Int("done", len(features)).
				Str("source", src.Name).
				Str("progress", fmt.Sprintf("%d/%d", n+1, total)).
				Str("name", f.Properties.Name()).
				Msg("Enriching")

			if err := e.Enrich(ctx, &f); err != nil {
				if errors.Is(err, ErrNoWikidata) {
					log.Warn().Str("name", f.Properties.Name()).Msg("No wikidata id, feature dropped")
					continue
				}
				return nil, err
			}

			features = append(features, f)
		}
	}

	return features, nil
}

// Enrich sets properties on f from its Wikidata entity. Missing claims are
// logged and left unset.
func (e *Enricher) Enrich(ctx context.Context, f *geo.Feature) error {
	if f.Properties == nil {
		f.Properties = geo.Properties{}
	}

	name := f.Properties.Name()
	id := f.Properties.String("wikidata")
	if id == "" {
		return ErrNoWikidata
	}

	entity, err := e.Lookup.Entity(ctx, id)
	if errors.Is(err, wikidata.ErrNotFound) {
		log.Warn().Str("name", name).Str("wikidata", id).Msg("Entity not found")
		return e.fallback(f, name)
	}
	if err != nil {
		return fmt.Errorf("%s (%s): %w", name, id, err)
	}

	warn := func(what string) {
		log.Warn().Str("name", name).Str("wikidata", id).Msg(what + " not found")
	}

	if pop, err := entity.Population(); err == nil {
		f.Properties["population"] = pop
	} else {
		warn("Population")
	}

	if coords, err := entity.Coordinates(); err == nil {
		f.Properties["coordinates"] = coords
	} else {
		warn("GPS coordinates")
		if err := e.fallback(f, name); err != nil {
			return err
		}
	}

	if postal, err := entity.String(wikidata.PropPostalCode); err == nil {
		f.Properties["postalcode"] = postal
	} else {
		warn("Postal code")
	}

	// many communes have no coat of arms, not worth a warning
	if file, err := entity.String(wikidata.PropCoatOfArms); err == nil {
		thumb, err := e.Lookup.Thumbnail(ctx, file)
		switch {
		case err == nil:
			f.Properties["blason"] = thumb
		case errors.Is(err, wikidata.ErrNotFound):
			log.Debug().Str("name", name).Str("file", file).Msg("Coat of arms thumbnail not found")
		default:
			return fmt.Errorf("%s thumbnail: %w", name, err)
		}
	}

	if ref, err := entity.String(wikidata.PropAnnuaire); err == nil {
		f.Properties["url"] = AnnuaireURL + ref
	} else {
		warn("URL")
	}

	return nil
}

func (e *Enricher) fallback(f *geo.Feature, name string) error {
	if !e.CentroidFallback {
		return nil
	}
	if _, err := f.Properties.Coordinates(); err == nil {
		return nil
	}

	c, err := Centroid(f.Geometry)
	if err != nil {
		log.Warn().Err(err).Str("name", name).Msg("Centroid fallback failed")
		return nil
	}

	f.Properties["coordinates"] = map[string]any{
		"latitude":  c.Latitude,
		"longitude": c.Longitude,
	}
	log.Debug().Str("name", name).Msg("Coordinates taken from geometry centroid")

	return nil
}

// Centroid returns the planar centroid of a generic GeoJSON geometry value.
func Centroid(geometry any) (geo.Coordinates, error) {
	if geometry == nil {
		return geo.Coordinates{}, errors.New("no geometry")
	}

	data, err := json.Marshal(geometry)
	if err != nil {
		return geo.Coordinates{}, err
	}

	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return geo.Coordinates{}, fmt.Errorf("parse geometry: %w", err)
	}

	orbGeom := g.Geometry()
	if orbGeom == nil {
		return geo.Coordinates{}, errors.New("empty geometry")
	}

	p, _ := planar.CentroidArea(orbGeom)

	return geo.Coordinates{Latitude: p.Lat(), Longitude: p.Lon()}, nil
}
