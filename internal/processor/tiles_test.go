package processor

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/woozymasta/boundtiles/internal/geo"

	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gopkg.in/yaml.v3"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func commune(name string, lat, lng float64) geo.Feature {
	return geo.Feature{
		Type: geo.TypeFeature,
		Properties: geo.Properties{
			"name":        name,
			"population":  float64(len(name) * 100),
			"coordinates": map[string]any{"latitude": lat, "longitude": lng},
		},
		Geometry: map[string]any{"type": "Point", "coordinates": []any{lng, lat}},
	}
}

func sampleFeatures() []geo.Feature {
	return []geo.Feature{
		commune("Montluçon", 46.3401, 2.6025),
		commune("Désertines", 46.3545, 2.6186),
		commune("Toulouse", 43.6, 1.44),
		commune("Paris", 48.8566, 2.3522),
		commune("Domérat", 46.3604, 2.5348),
	}
}

func readCollection(t *testing.T, path string) geo.FeatureCollection {
	t.Helper()
	fc, err := geo.LoadFile(path)
	require.NoError(t, err)
	return fc
}

// snapshot returns every regular file under root keyed by relative path.
func snapshot(t *testing.T, root string) map[string][]byte {
	t.Helper()
	files := make(map[string][]byte)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = data
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestWriterWritesTilesAndNull(t *testing.T) {
	root := t.TempDir()
	features := sampleFeatures()

	groups, err := geo.Bucket(features, geo.DefaultZoom)
	require.NoError(t, err)

	w := NewWriter(root, "GeoJson", JSONEncoder{}, 4)
	stats, err := w.Write(context.Background(), groups)
	require.NoError(t, err)
	require.NoError(t, w.WriteEmpty())

	assert.Equal(t, len(groups), stats.Tiles)
	assert.Equal(t, len(features), stats.Features)

	total := 0
	for _, tile := range groups.Tiles() {
		path := filepath.Join(root, "11",
			strconv.FormatUint(uint64(tile.X), 10),
			strconv.FormatUint(uint64(tile.Y), 10)+".GeoJson")
		require.FileExists(t, path)

		fc := readCollection(t, path)
		assert.Equal(t, geo.TypeFeatureCollection, fc.Type)
		require.Len(t, fc.Features, len(groups[tile]))
		for i, f := range fc.Features {
			assert.Equal(t, groups[tile][i].Properties.Name(), f.Properties.Name())
		}
		total += len(fc.Features)
	}
	assert.Equal(t, len(features), total)

	null := readCollection(t, filepath.Join(root, "null.GeoJson"))
	assert.Empty(t, null.Features)

	// no temporary files are left behind
	for name := range snapshot(t, root) {
		assert.NotContains(t, name, ".tmp")
	}
}

func TestWriterKeepsOrderInsideTile(t *testing.T) {
	root := t.TempDir()
	features := []geo.Feature{
		commune("first", 46.3401, 2.6025),
		commune("second", 46.3402, 2.6026),
		commune("third", 46.3403, 2.6027),
	}

	groups, err := geo.Bucket(features, geo.DefaultZoom)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	w := NewWriter(root, "GeoJson", nil, 2)
	_, err = w.Write(context.Background(), groups)
	require.NoError(t, err)

	fc := readCollection(t, w.TilePath(maptile.New(1038, 725, 11)))
	require.Len(t, fc.Features, 3)
	assert.Equal(t, "first", fc.Features[0].Properties.Name())
	assert.Equal(t, "second", fc.Features[1].Properties.Name())
	assert.Equal(t, "third", fc.Features[2].Properties.Name())
}

func TestWriterNullOnEmptyInput(t *testing.T) {
	root := t.TempDir()

	groups, err := geo.Bucket(nil, geo.DefaultZoom)
	require.NoError(t, err)

	w := NewWriter(root, "", nil, 0)
	stats, err := w.Write(context.Background(), groups)
	require.NoError(t, err)
	require.NoError(t, w.WriteEmpty())

	assert.Equal(t, Stats{}, stats)

	files := snapshot(t, root)
	require.Len(t, files, 1)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(files["null.GeoJson"]))
}

func TestWriterIdempotent(t *testing.T) {
	root := t.TempDir()

	run := func() map[string][]byte {
		groups, err := geo.Bucket(sampleFeatures(), geo.DefaultZoom)
		require.NoError(t, err)

		w := NewWriter(root, "GeoJson", JSONEncoder{}, 3)
		_, err = w.Write(context.Background(), groups)
		require.NoError(t, err)
		require.NoError(t, w.WriteEmpty())

		return snapshot(t, root)
	}

	first := run()
	second := run()

	require.Equal(t, len(first), len(second))
	for name, data := range first {
		assert.True(t, bytes.Equal(data, second[name]), "file %s differs between runs", name)
	}
}

func TestWriterYAML(t *testing.T) {
	root := t.TempDir()
	groups, err := geo.Bucket(sampleFeatures()[:1], geo.DefaultZoom)
	require.NoError(t, err)

	w := NewWriter(root, ".yaml", YAMLEncoder{}, 1)
	_, err = w.Write(context.Background(), groups)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "11", "1038", "725.yaml"))
	require.NoError(t, err)

	var fc geo.FeatureCollection
	require.NoError(t, yaml.Unmarshal(data, &fc))
	assert.Equal(t, geo.TypeFeatureCollection, fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "Montluçon", fc.Features[0].Properties.Name())
}

func TestWriterFailsOnUnwritableRoot(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "blocked")
	// a regular file where a directory is expected
	require.NoError(t, os.WriteFile(root, []byte("x"), 0644))

	groups, err := geo.Bucket(sampleFeatures(), geo.DefaultZoom)
	require.NoError(t, err)

	w := NewWriter(root, "GeoJson", nil, 2)
	_, err = w.Write(context.Background(), groups)
	require.Error(t, err)

	require.Error(t, w.WriteEmpty())
}

func TestWriterCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	groups, err := geo.Bucket(sampleFeatures(), geo.DefaultZoom)
	require.NoError(t, err)

	w := NewWriter(t.TempDir(), "GeoJson", nil, 1)
	_, err = w.Write(ctx, groups)
	require.ErrorIs(t, err, context.Canceled)
}

func TestEncoderFor(t *testing.T) {
	for _, name := range []string{"json", "GeoJSON"} {
		enc, err := EncoderFor(name)
		require.NoError(t, err)
		assert.Equal(t, "json", enc.Name())
	}
	for _, name := range []string{"yaml", "YML"} {
		enc, err := EncoderFor(name)
		require.NoError(t, err)
		assert.Equal(t, "yaml", enc.Name())
	}

	_, err := EncoderFor("xml")
	require.Error(t, err)
}

func TestExtensionAndFormat(t *testing.T) {
	assert.Equal(t, "GeoJson", Extension("data/boundaries_all_fr.GeoJson"))
	assert.Equal(t, "yml", Extension("boundaries.yml"))
	assert.Equal(t, DefaultExtension, Extension("boundaries"))

	assert.Equal(t, "json", FormatFor("GeoJson"))
	assert.Equal(t, "yaml", FormatFor(".YAML"))
	assert.Equal(t, "yaml", FormatFor("yml"))
}
