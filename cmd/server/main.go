package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/woozymasta/boundtiles/internal/config"
	"github.com/woozymasta/boundtiles/internal/logger"
	"github.com/woozymasta/boundtiles/internal/server"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// defaultZoom matches the --zoom default.
const defaultZoom = 11

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config" env:"CONFIG_FILE"    description:"Path to configuration file"`
	Root       string `short:"r" long:"root"   env:"TILES_ROOT"     description:"Tile tree root directory" default:"."`
	Ext        string `short:"e" long:"ext"    env:"TILE_EXT"       description:"Tile file extension" default:"GeoJson"`
	Addr       string `short:"a" long:"addr"   env:"LISTEN_ADDRESS" description:"Address to listen on"       default:"0.0.0.0"`
	Port       int    `short:"p" long:"port"   env:"LISTEN_PORT"    description:"Port to listen on"          default:"8080"`
	Zoom       int    `short:"z" long:"zoom"   env:"ZOOM"           description:"Zoom level of the tile tree" default:"11"`
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

	// Setup Logging
	opts.Logger.Setup()

	// Load Config
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	zoom, overridden := cfg.Tiles.ResolveZoom(opts.Zoom, defaultZoom)
	if overridden {
		log.Warn().
			Int("flag", opts.Zoom).
			Int("config", zoom).
			Msg("Zoom from configuration file overrides --zoom")
	}

	ext := cfg.Tiles.Extension
	if ext == "" {
		ext = opts.Ext
	}

	srvCtx := server.NewServerContext(opts.Root, ext, zoom)

	// Routes
	mux := http.NewServeMux()
	mux.HandleFunc("/api/layer", srvCtx.HandleLayer)
	mux.HandleFunc("/", srvCtx.HandleTile)

	handler := server.RequestLogger(mux)

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	log.Info().
		Str("addr", listenAddr).
		Str("root", opts.Root).
		Int("zoom", zoom).
		Msg("Tile server started")

	if err := http.ListenAndServe(listenAddr, handler); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
