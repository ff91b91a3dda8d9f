// Package config handles configuration loading and shared settings.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the root configuration file structure.
// Every section is optional; absent values keep the defaults from Default.
type Config struct {
	Tiles    Tiles    `yaml:"tiles"`
	Enrich   Enrich   `yaml:"enrich"`
	Filter   Filter   `yaml:"filter"`
	Wikidata Wikidata `yaml:"wikidata"`
	Redis    Redis    `yaml:"redis"`
}

// Tiles configures the tiling pipeline.
type Tiles struct {
	Zoom        *int   `yaml:"zoom,omitempty"`
	Extension   string `yaml:"extension,omitempty"`
	Format      string `yaml:"format,omitempty"`
	Concurrency int    `yaml:"concurrency,omitempty"`
}

// ResolveZoom returns the configured zoom, or flagZoom when the file sets none.
// overridden reports that the file replaced a flag value that differs from def.
func (t Tiles) ResolveZoom(flagZoom, def int) (zoom int, overridden bool) {
	if t.Zoom == nil {
		return flagZoom, false
	}

	return *t.Zoom, flagZoom != def && flagZoom != *t.Zoom
}

// Enrich configures sanitizing of raw boundary exports.
type Enrich struct {
	// SkipNames are dropped during sanitize.
	SkipNames []string `yaml:"skip_names"`
	// CodeOverrides forces an INSEE code for a given name.
	CodeOverrides map[string]string `yaml:"code_overrides"`
}

// Filter configures the allow-list filter.
type Filter struct {
	NameColumn     int      `yaml:"name_column"`
	AmbiguousNames []string `yaml:"ambiguous_names"`
	AllowedCodes   []string `yaml:"allowed_codes"`
}

// Wikidata configures the knowledge-base client.
type Wikidata struct {
	APIURL     string        `yaml:"api_url"`
	CommonsURL string        `yaml:"commons_url"`
	UserAgent  string        `yaml:"user_agent"`
	Timeout    time.Duration `yaml:"timeout"`
	Attempts   int           `yaml:"attempts"`
}

// Redis configures the optional response cache. Empty Addr disables it.
type Redis struct {
	Addr     string        `yaml:"addr,omitempty"`
	Password string        `yaml:"password,omitempty"`
	DB       int           `yaml:"db,omitempty"`
	Prefix   string        `yaml:"prefix,omitempty"`
	TTL      time.Duration `yaml:"ttl,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Enrich: Enrich{
			SkipNames: []string{"Domaine Public Maritime"},
			// Archipel des Tuamotu and Îles Gambier share one code.
			CodeOverrides: map[string]string{"Gambier": "9875"},
		},
		Filter: Filter{
			NameColumn: 2,
			AmbiguousNames: []string{
				"Saint-Hilaire", "Saint-Loup", "Chappes",
				"La Celle", "Lussat", "Saint-Angel",
			},
			AllowedCodes: []string{"03238", "03242", "03058", "03047", "23114", "03217"},
		},
		Wikidata: Wikidata{
			APIURL:     "https://www.wikidata.org/w/api.php",
			CommonsURL: "https://commons.wikimedia.org/w/api.php",
			UserAgent:  "boundtiles/1.0 (https://github.com/woozymasta/boundtiles)",
			Timeout:    30 * time.Second,
			Attempts:   5,
		},
		Redis: Redis{
			Prefix: "boundtiles:",
			TTL:    7 * 24 * time.Hour,
		},
	}
}

// Load reads and parses the YAML configuration file from the specified path
// on top of Default. An empty path returns Default unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
