package geo

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb/maptile"
)

// TileGroup maps a tile to its features in input order.
type TileGroup map[maptile.Tile][]Feature

// Bucket groups features by the tile of their representative coordinate.
// Order inside a tile follows input order and duplicates are kept.
// A feature without coordinates, or with latitude outside (-90, 90), fails
// the whole call.
func Bucket(features []Feature, z maptile.Zoom) (TileGroup, error) {
	groups := make(TileGroup)

	for i, f := range features {
		c, err := f.Properties.Coordinates()
		if err != nil {
			return nil, fmt.Errorf("feature %d (%q): %w", i, f.Properties.Name(), err)
		}
		if c.Latitude <= -90 || c.Latitude >= 90 {
			return nil, fmt.Errorf("feature %d (%q): latitude %v out of range", i, f.Properties.Name(), c.Latitude)
		}

		t := Project(c.Latitude, c.Longitude, z)
		groups[t] = append(groups[t], f)
	}

	return groups, nil
}

// Tiles returns the occupied tiles sorted by z, x, y.
func (g TileGroup) Tiles() []maptile.Tile {
	keys := make([]maptile.Tile, 0, len(g))
	for t := range g {
		keys = append(keys, t)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Z != keys[j].Z {
			return keys[i].Z < keys[j].Z
		}
		if keys[i].X != keys[j].X {
			return keys[i].X < keys[j].X
		}
		return keys[i].Y < keys[j].Y
	})

	return keys
}

// Count returns the total number of features over all tiles.
func (g TileGroup) Count() int {
	total := 0
	for _, fs := range g {
		total += len(fs)
	}
	return total
}
