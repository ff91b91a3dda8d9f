// Package compact minifies JSON documents in place.
package compact

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/json"
)

const mediaType = "application/json"

// Minifier rewrites JSON and GeoJSON files without insignificant whitespace.
type Minifier struct {
	m          *minify.M
	extensions map[string]struct{}
}

// New returns a minifier matching the given extensions (case-insensitive,
// with or without dot). With none, .json and .geojson are matched.
func New(extensions ...string) *Minifier {
	if len(extensions) == 0 {
		extensions = []string{"json", "geojson"}
	}

	m := minify.New()
	m.AddFunc(mediaType, json.Minify)

	ext := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		ext[strings.ToLower(strings.TrimPrefix(e, "."))] = struct{}{}
	}

	return &Minifier{m: m, extensions: ext}
}

// Match reports whether path has one of the configured extensions.
func (c *Minifier) Match(path string) bool {
	_, ok := c.extensions[strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))]
	return ok
}

// Bytes minifies a JSON document.
func (c *Minifier) Bytes(data []byte) ([]byte, error) {
	return c.m.Bytes(mediaType, data)
}

// File minifies path in place and returns the sizes before and after.
// The file is left untouched when minifying does not shrink it.
func (c *Minifier) File(path string) (before, after int, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, 0, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}

	out, err := c.Bytes(raw)
	if err != nil {
		return len(raw), len(raw), err
	}

	if len(out) >= len(raw) || bytes.Equal(out, raw) {
		return len(raw), len(raw), nil
	}

	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return len(raw), len(raw), err
	}

	return len(raw), len(out), nil
}

// Walk minifies every matching file under root and calls fn after each one.
func (c *Minifier) Walk(root string, fn func(path string, before, after int)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !c.Match(path) {
			return nil
		}

		before, after, err := c.File(path)
		if err != nil {
			return err
		}
		if fn != nil {
			fn(path, before, after)
		}

		return nil
	})
}
