package geo

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {
        "name": "Montluçon",
        "insee": "03185",
        "coordinates": {"latitude": 46.3401, "longitude": 2.6025, "precision": 0.0001}
      },
      "bbox": [2.55, 46.31, 2.65, 46.37],
      "geometry": {"type": "Polygon", "coordinates": [[[2.55, 46.31], [2.65, 46.31], [2.65, 46.37], [2.55, 46.31]]]}
    }
  ]
}`

func TestDecode(t *testing.T) {
	fc, err := Decode(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)

	f := fc.Features[0]
	assert.Equal(t, "Montluçon", f.Properties.Name())
	assert.Equal(t, "03185", f.Properties.String("insee"))
	assert.Equal(t, []float64{2.55, 46.31, 2.65, 46.37}, f.BBox)

	c, err := f.Properties.Coordinates()
	require.NoError(t, err)
	assert.Equal(t, Coordinates{Latitude: 46.3401, Longitude: 2.6025}, c)

	geom, ok := f.Geometry.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Polygon", geom["type"])
}

func TestDecodeRejectsWrongType(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"type": "Feature", "features": []}`))
	require.ErrorIs(t, err, ErrNotFeatureCollection)

	_, err = Decode(strings.NewReader(`{"features": []}`))
	require.ErrorIs(t, err, ErrNotFeatureCollection)

	_, err = Decode(strings.NewReader(`not json`))
	require.Error(t, err)
}

func TestDecodeRequiresFeatures(t *testing.T) {
	for _, doc := range []string{
		`{"type": "FeatureCollection"}`,
		`{"type": "FeatureCollection", "features": null}`,
	} {
		_, err := Decode(strings.NewReader(doc))
		require.ErrorIs(t, err, ErrNoFeatures, doc)
	}
}

func TestDecodeEmptyFeatures(t *testing.T) {
	fc, err := Decode(strings.NewReader(`{"type": "FeatureCollection", "features": []}`))
	require.NoError(t, err)
	assert.NotNil(t, fc.Features)
	assert.Empty(t, fc.Features)
}

func TestDecodeRejectsTrailingData(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"type": "FeatureCollection", "features": []} garbage`))
	require.Error(t, err)

	_, err = Decode(strings.NewReader(`{"type": "FeatureCollection", "features": []}{}`))
	require.Error(t, err)

	// trailing whitespace is fine
	_, err = Decode(strings.NewReader("{\"type\": \"FeatureCollection\", \"features\": []}\n\n"))
	require.NoError(t, err)
}

func TestCoordinatesErrors(t *testing.T) {
	tests := []struct {
		name  string
		props Properties
	}{
		{"missing", Properties{}},
		{"null", Properties{"coordinates": nil}},
		{"wrong type", Properties{"coordinates": "46,2"}},
		{"no longitude", Properties{"coordinates": map[string]any{"latitude": 46.0}}},
		{"string latitude", Properties{"coordinates": map[string]any{"latitude": "46", "longitude": 2.0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.props.Coordinates()
			require.ErrorIs(t, err, ErrNoCoordinates)
		})
	}
}

func TestCoordinatesTyped(t *testing.T) {
	p := Properties{"coordinates": Coordinates{Latitude: 1, Longitude: 2}}
	c, err := p.Coordinates()
	require.NoError(t, err)
	assert.Equal(t, Coordinates{Latitude: 1, Longitude: 2}, c)
}

func TestPropertiesString(t *testing.T) {
	p := Properties{"a": "03185", "b": float64(9875), "c": 42, "d": true}
	assert.Equal(t, "03185", p.String("a"))
	assert.Equal(t, "9875", p.String("b"))
	assert.Equal(t, "42", p.String("c"))
	assert.Equal(t, "", p.String("d"))
	assert.Equal(t, "", p.String("missing"))
}

func TestNewFeatureCollectionSerializesEmptyList(t *testing.T) {
	data, err := json.Marshal(NewFeatureCollection(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(data))
}

func TestSaveAndLoadFile(t *testing.T) {
	fc, err := Decode(strings.NewReader(sample))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.GeoJson")
	require.NoError(t, SaveFile(path, fc, "   "))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(raw, []byte("\n   \"features\"")))
	assert.Contains(t, string(raw), "Montluçon")

	back, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fc, back)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.GeoJson"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.GeoJson")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"Topology"}`), 0644))
	_, err = LoadFile(path)
	require.ErrorIs(t, err, ErrNotFeatureCollection)
	assert.Contains(t, err.Error(), "bad.GeoJson")

	require.NoError(t, os.WriteFile(path, []byte(`{"type":"FeatureCollection"}`), 0644))
	_, err = LoadFile(path)
	require.ErrorIs(t, err, ErrNoFeatures)
}
