package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/woozymasta/boundtiles/internal/cache"
	"github.com/woozymasta/boundtiles/internal/config"
	"github.com/woozymasta/boundtiles/internal/enrich"
	"github.com/woozymasta/boundtiles/internal/geo"
	"github.com/woozymasta/boundtiles/internal/logger"
	"github.com/woozymasta/boundtiles/internal/wikidata"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile       string `short:"c" long:"config"            env:"CONFIG_FILE"    description:"Path to configuration file"`
	Output           string `short:"o" long:"out"               env:"OUTPUT"         description:"Output FeatureCollection file" required:"true"`
	Indent           string `long:"indent"                      env:"OUTPUT_INDENT"  description:"Output indentation" default:"   "`
	RedisAddr        string `long:"redis"                       env:"REDIS_ADDR"     description:"Redis address for caching API responses"`
	Raw              bool   `short:"r" long:"raw"               description:"Inputs are raw OSM boundary exports to sanitize"`
	CentroidFallback bool   `long:"centroid-fallback"           description:"Use the geometry centroid when Wikidata has no coordinates"`
	Args             struct {
		Inputs []string `positional-arg-name:"INPUT" description:"Input FeatureCollection files" required:"1"`
	} `positional-args:"yes"`
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
	if opts.RedisAddr != "" {
		cfg.Redis.Addr = opts.RedisAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	wd := cfg.Wikidata
	client := wikidata.NewClient(wd.APIURL, wd.CommonsURL, wd.UserAgent, wd.Timeout, wd.Attempts)

	if rc := cache.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix, cfg.Redis.TTL); rc != nil {
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, running without cache")
		} else {
			client.Cache = rc
			log.Info().Str("addr", cfg.Redis.Addr).Msg("Using Redis response cache")
		}
		defer func() { _ = rc.Close() }()
	}

	sources := make([]enrich.Source, 0, len(opts.Args.Inputs))
	for _, path := range opts.Args.Inputs {
		fc, err := geo.LoadFile(path)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load input")
		}
		sources = append(sources, enrich.Source{Name: path, Collection: fc})
	}

	e := &enrich.Enricher{Lookup: client, CentroidFallback: opts.CentroidFallback}
	if opts.Raw {
		e.Sanitizer = enrich.NewSanitizer(cfg.Enrich)
	}

	log.Info().
		Int("inputs", len(sources)).
		Bool("raw", opts.Raw).
		Msg("Starting enrichment")

	features, err := e.Process(ctx, sources)
	if err != nil {
		log.Fatal().Err(err).Msg("Enrichment failed")
	}

	if err := geo.SaveFile(opts.Output, geo.NewFeatureCollection(features), opts.Indent); err != nil {
		log.Fatal().Err(err).Str("path", opts.Output).Msg("Failed to write output")
	}

	log.Info().
		Int("features", len(features)).
		Str("output", opts.Output).
		Msg("Enrichment finished successfully")
}
