package main

import (
	"os"

	"github.com/woozymasta/boundtiles/internal/compact"
	"github.com/woozymasta/boundtiles/internal/logger"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	Ext  []string `short:"e" long:"ext" description:"File extensions to minify (default json, geojson)"`
	Args struct {
		Paths []string `positional-arg-name:"PATH" description:"Files or directories to minify" required:"1"`
	} `positional-args:"yes"`
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

	m := compact.New(opts.Ext...)

	var files, saved int
	report := func(path string, before, after int) {
		files++
		saved += before - after
		log.Debug().
			Str("path", path).
			Int("before", before).
			Int("after", after).
			Msg("Minified")
	}

	for _, path := range opts.Args.Paths {
		info, err := os.Stat(path)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("Failed to read path")
		}

		if info.IsDir() {
			if err := m.Walk(path, report); err != nil {
				log.Fatal().Err(err).Str("path", path).Msg("Failed to minify directory")
			}
			continue
		}

		before, after, err := m.File(path)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("Failed to minify file")
		}
		report(path, before, after)
	}

	log.Info().
		Int("files", files).
		Int("bytes_saved", saved).
		Msg("Minify done")
}
