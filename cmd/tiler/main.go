package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/woozymasta/boundtiles/internal/config"
	"github.com/woozymasta/boundtiles/internal/logger"
	"github.com/woozymasta/boundtiles/internal/processor"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/paulmach/orb/maptile"
	"github.com/rs/zerolog/log"
)

const (
	// defaultZoom matches the --zoom default.
	defaultZoom = 11
	// maxZoom keeps 2^z inside the uint32 tile grid.
	maxZoom = 30
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile  string `short:"c" long:"config"      env:"CONFIG_FILE"  description:"Path to configuration file"`
	Input       string `short:"i" long:"in"          env:"INPUT"        description:"Input FeatureCollection file" required:"true"`
	Output      string `short:"o" long:"out"         env:"OUTPUT_ROOT"  description:"Output root directory" default:"."`
	Ext         string `short:"e" long:"ext"         env:"TILE_EXT"     description:"Tile file extension (defaults to the input extension)"`
	Format      string `short:"f" long:"format"      env:"TILE_FORMAT"  description:"Tile format (defaults to the input format)" choice:"json" choice:"yaml"`
	Zoom        int    `short:"z" long:"zoom"        env:"ZOOM"         description:"Zoom level" default:"11"`
	Concurrency int    `short:"p" long:"concurrency" env:"CONCURRENCY"  description:"Parallel tile writers" default:"8"`
}

func main() {
	_ = godotenv.Load(".env")

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

	// config file wins, flags fill the gaps
	zoom, overridden := cfg.Tiles.ResolveZoom(opts.Zoom, defaultZoom)
	if overridden {
		log.Warn().
			Int("flag", opts.Zoom).
			Int("config", zoom).
			Msg("Zoom from configuration file overrides --zoom")
	}
	if zoom < 0 || zoom > maxZoom {
		log.Fatal().Int("zoom", zoom).Msg("Zoom level out of range")
	}

	ext := cfg.Tiles.Extension
	if ext == "" {
		ext = opts.Ext
	}
	if ext == "" {
		ext = processor.Extension(opts.Input)
	}

	format := cfg.Tiles.Format
	if format == "" {
		format = opts.Format
	}
	if format == "" {
		format = processor.FormatFor(processor.Extension(opts.Input))
	}

	enc, err := processor.EncoderFor(format)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid output format")
	}

	concurrency := cfg.Tiles.Concurrency
	if concurrency <= 0 {
		concurrency = opts.Concurrency
	}

	log.Info().
		Str("input", opts.Input).
		Str("output", opts.Output).
		Int("zoom", zoom).
		Str("ext", ext).
		Str("format", enc.Name()).
		Msg("Starting tiler")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	w := processor.NewWriter(opts.Output, ext, enc, concurrency)
	if _, err := processor.ProcessTiles(ctx, opts.Input, maptile.Zoom(zoom), w); err != nil {
		log.Fatal().Err(err).Msg("Tiling failed")
	}

	log.Info().Msg("Tiler finished successfully")
}
