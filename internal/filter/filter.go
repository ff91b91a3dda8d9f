// Package filter keeps the boundaries listed in an allow-list CSV.
package filter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/woozymasta/boundtiles/internal/config"
	"github.com/woozymasta/boundtiles/internal/geo"
)

// AllowList selects features by name. Names shared by several communes are
// only kept when the feature's INSEE code is explicitly allowed.
type AllowList struct {
	names     map[string]struct{}
	ambiguous map[string]struct{}
	codes     map[string]struct{}
}

// New returns an allow-list over names using the ambiguity rules of cfg.
func New(names []string, cfg config.Filter) *AllowList {
	a := &AllowList{
		names:     toSet(names),
		ambiguous: toSet(cfg.AmbiguousNames),
		codes:     toSet(cfg.AllowedCodes),
	}
	return a
}

// ReadNames reads the distinct values of column (0-based) from a CSV stream.
// Rows may have varying field counts; short rows are an error.
func ReadNames(r io.Reader, column int) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	seen := make(map[string]struct{})
	names := make([]string, 0)

	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if column < 0 || column >= len(rec) {
			return nil, fmt.Errorf("line %d: no column %d", line, column)
		}

		name := strings.TrimSpace(rec[column])
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	sort.Strings(names)
	return names, nil
}

// ReadNamesFile is ReadNames over a file.
func ReadNamesFile(path string, column int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	names, err := ReadNames(f, column)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return names, nil
}

// Allowed reports whether f passes the allow-list.
func (a *AllowList) Allowed(f geo.Feature) bool {
	name := f.Properties.Name()
	if _, ok := a.names[name]; !ok {
		return false
	}
	if _, ok := a.ambiguous[name]; !ok {
		return true
	}

	_, ok := a.codes[f.Properties.String("insee")]
	return ok
}

// Apply returns the allowed features in input order.
func (a *AllowList) Apply(features []geo.Feature) []geo.Feature {
	out := make([]geo.Feature, 0, len(features))
	for _, f := range features {
		if a.Allowed(f) {
			out = append(out, f)
		}
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
