// Package processor writes bucketed features as sharded tile files.
package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/woozymasta/boundtiles/internal/geo"

	"github.com/paulmach/orb/maptile"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// NullTile is the base name of the empty fallback tile.
const NullTile = "null"

// Writer writes one file per occupied tile under Root as {z}/{x}/{y}.{Ext}.
type Writer struct {
	Encoder     Encoder
	Root        string
	Ext         string
	Concurrency int
}

// Stats summarizes a Write call.
type Stats struct {
	Tiles    int
	Features int
}

// NewWriter returns a writer with a JSON encoder and the default extension
// where values are missing.
func NewWriter(root, ext string, enc Encoder, concurrency int) *Writer {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = DefaultExtension
	}
	if enc == nil {
		enc = JSONEncoder{}
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	return &Writer{Root: root, Ext: ext, Encoder: enc, Concurrency: concurrency}
}

// TilePath returns the output path of a tile.
func (w *Writer) TilePath(t maptile.Tile) string {
	return filepath.Join(
		w.Root,
		fmt.Sprintf("%d", t.Z),
		fmt.Sprintf("%d", t.X),
		fmt.Sprintf("%d", t.Y)+"."+w.Ext,
	)
}

// NullPath returns the path of the fallback tile.
func (w *Writer) NullPath() string {
	return filepath.Join(w.Root, NullTile+"."+w.Ext)
}

// Write serializes every group to its own file. Files are independent, so
// they are written by up to Concurrency workers; the first error cancels the
// remaining jobs and is returned. Files already written stay on disk.
func (w *Writer) Write(ctx context.Context, groups geo.TileGroup) (Stats, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(w.Concurrency, 1))

	for _, t := range groups.Tiles() {
		features := groups[t]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			path := w.TilePath(t)
			if err := w.writeFile(path, geo.NewFeatureCollection(features)); err != nil {
				return fmt.Errorf("tile %d/%d/%d: %w", t.Z, t.X, t.Y, err)
			}

			log.Trace().
				Str("path", path).
				Int("features", len(features)).
				Msg("Tile written")

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	return Stats{Tiles: len(groups), Features: groups.Count()}, nil
}

// WriteEmpty writes the null tile holding an empty collection. The front end
// loads it as placeholder for tiles that were never written.
func (w *Writer) WriteEmpty() error {
	return w.writeFile(w.NullPath(), geo.NewFeatureCollection(nil))
}

// writeFile encodes fc to a temporary sibling and renames it into place so
// readers never observe a half-written tile.
func (w *Writer) writeFile(path string, fc geo.FeatureCollection) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if err := w.Encoder.Encode(f, fc); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Chmod(tmp, 0644); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	return nil
}
