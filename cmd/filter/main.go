package main

import (
	"os"

	"github.com/woozymasta/boundtiles/internal/config"
	"github.com/woozymasta/boundtiles/internal/filter"
	"github.com/woozymasta/boundtiles/internal/geo"
	"github.com/woozymasta/boundtiles/internal/logger"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config" env:"CONFIG_FILE" description:"Path to configuration file"`
	Input      string `short:"i" long:"in"     description:"Input FeatureCollection file" default:"boundaries_all.GeoJson"`
	Output     string `short:"o" long:"out"    description:"Output FeatureCollection file" default:"boundaries.GeoJson"`
	List       string `short:"l" long:"list"   description:"Allow-list CSV file" default:"listCases.csv"`
	Column     int    `short:"n" long:"column" description:"0-based CSV column holding names (overrides config)" default:"-1"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	column := cfg.Filter.NameColumn
	if opts.Column >= 0 {
		column = opts.Column
	}

	names, err := filter.ReadNamesFile(opts.List, column)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read allow-list")
	}
	for _, name := range names {
		log.Debug().Str("name", name).Msg("Allowed location")
	}

	fc, err := geo.LoadFile(opts.Input)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load input")
	}

	kept := filter.New(names, cfg.Filter).Apply(fc.Features)

	if err := geo.SaveFile(opts.Output, geo.NewFeatureCollection(kept), ""); err != nil {
		log.Fatal().Err(err).Str("path", opts.Output).Msg("Failed to write output")
	}

	log.Info().
		Int("locations", len(names)).
		Int("features_in", len(fc.Features)).
		Int("features_out", len(kept)).
		Str("output", opts.Output).
		Msg("Filter finished successfully")
}
