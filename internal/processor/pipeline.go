package processor

import (
	"context"
	"fmt"

	"github.com/woozymasta/boundtiles/internal/geo"

	"github.com/paulmach/orb/maptile"
	"github.com/rs/zerolog/log"
)

// ProcessTiles loads the input collection, buckets it at zoom and writes
// every occupied tile followed by the null fallback tile.
func ProcessTiles(ctx context.Context, input string, zoom maptile.Zoom, w *Writer) (Stats, error) {
	fc, err := geo.LoadFile(input)
	if err != nil {
		return Stats{}, err
	}

	log.Info().
		Str("input", input).
		Int("features", len(fc.Features)).
		Msg("Input loaded")

	groups, err := geo.Bucket(fc.Features, zoom)
	if err != nil {
		return Stats{}, err
	}

	if n := groups.Count(); n != len(fc.Features) {
		return Stats{}, fmt.Errorf("bucketing lost features: %d in, %d out", len(fc.Features), n)
	}

	log.Debug().
		Int("zoom", int(zoom)).
		Int("tiles", len(groups)).
		Msg("Features bucketed")

	stats, err := w.Write(ctx, groups)
	if err != nil {
		return stats, err
	}

	if err := w.WriteEmpty(); err != nil {
		return stats, fmt.Errorf("null tile: %w", err)
	}

	log.Info().
		Str("root", w.Root).
		Str("ext", w.Ext).
		Str("format", w.Encoder.Name()).
		Int("tiles", stats.Tiles).
		Int("features", stats.Features).
		Msg("Tiles written")

	return stats, nil
}
