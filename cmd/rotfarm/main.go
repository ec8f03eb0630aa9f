package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/woozymasta/rotfarm/internal/config"
	"github.com/woozymasta/rotfarm/internal/logger"
	"github.com/woozymasta/rotfarm/internal/output"
	"github.com/woozymasta/rotfarm/internal/preview"
	"github.com/woozymasta/rotfarm/internal/processor"
	"github.com/woozymasta/rotfarm/internal/stats"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile    string `short:"c" long:"config"         env:"CONFIG_FILE"    description:"Path to optional YAML configuration file"`
	Input         string `short:"i" long:"in"             env:"INPUT_FILE"     description:"Input GeoJSON file"                default:"rotational-farming.json"`
	Output        string `short:"o" long:"out"            env:"OUTPUT_FILE"    description:"Output file"                       default:"minified_farms.json"`
	Format        string `short:"f" long:"format"         env:"OUTPUT_FORMAT"  description:"Output format" choice:"json" choice:"min" choice:"yaml" choice:"fgb" default:"json"`
	SourceCRS     string `long:"source-crs"               env:"SOURCE_CRS"     description:"Source coordinate reference system" default:"EPSG:32647"`
	TargetCRS     string `long:"target-crs"               env:"TARGET_CRS"     description:"Target coordinate reference system" default:"EPSG:4326"`
	Workers       int    `short:"p" long:"workers"        env:"WORKERS"        description:"Features processed concurrently"   default:"1"`
	SkipInvalid   bool   `long:"skip-invalid"             env:"SKIP_INVALID"   description:"Drop features that fail to process instead of aborting"`
	PreviewPath   string `long:"preview"                  env:"PREVIEW_FILE"   description:"Also render a WebP preview to this path"`
	PreviewWidth  int    `long:"preview-width"            env:"PREVIEW_WIDTH"  description:"Preview width in pixels"           default:"1024"`
	PreviewHeight int    `long:"preview-height"           env:"PREVIEW_HEIGHT" description:"Preview height in pixels"          default:"768"`
}

func (o *Options) config() config.Config {
	return config.Config{
		Input:       o.Input,
		Output:      o.Output,
		Format:      o.Format,
		SourceCRS:   o.SourceCRS,
		TargetCRS:   o.TargetCRS,
		Workers:     o.Workers,
		SkipInvalid: o.SkipInvalid,
		Preview: config.Preview{
			Path:   o.PreviewPath,
			Width:  o.PreviewWidth,
			Height: o.PreviewHeight,
		},
	}
}

// flagNames maps configuration keys to their long flag names.
var flagNames = map[string]string{
	"input":          "in",
	"output":         "out",
	"format":         "format",
	"source_crs":     "source-crs",
	"target_crs":     "target-crs",
	"workers":        "workers",
	"preview.path":   "preview",
	"preview.width":  "preview-width",
	"preview.height": "preview-height",
}

// explicitFlag reports whether the flag for a configuration key was given
// on the command line rather than taken from its default or environment.
func explicitFlag(parser *flags.Parser, key string) bool {
	opt := parser.FindOptionByLongName(flagNames[key])
	return opt != nil && opt.IsSet() && !opt.IsSetDefault()
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

	// Values from the configuration file win over flags
	cfg := opts.config()
	if opts.ConfigFile != "" {
		fileCfg, err := config.Load(opts.ConfigFile)
		if err != nil {
			log.Fatal().Err(err).Str("path", opts.ConfigFile).Msg("Failed to load configuration")
		}
		for _, o := range fileCfg.Overrides(cfg) {
			if explicitFlag(parser, o.Key) {
				log.Warn().
					Str("key", o.Key).
					Str("value", o.Value).
					Str("ignored", o.Lost).
					Str("config", opts.ConfigFile).
					Msg("Configuration file overrides command line flag")
			}
		}
		fileCfg.Fill(cfg)
		cfg = *fileCfg
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	format, _ := output.ParseFormat(cfg.Format)

	pipeline, err := processor.New(processor.Options{
		SourceCRS:   cfg.SourceCRS,
		TargetCRS:   cfg.TargetCRS,
		Workers:     cfg.Workers,
		SkipInvalid: cfg.SkipInvalid,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid coordinate reference system")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := pipeline.Run(ctx, cfg.Input, cfg.Output, format)
	if err != nil {
		event := log.Fatal().Err(err)
		var fe *processor.FeatureError
		if errors.As(err, &fe) {
			event = event.Int("index", fe.Index).Str("id", fe.ID)
		}
		stop()
		event.Msg("Processing failed")
	}

	summary := stats.Summarize(res.Collection.Features)
	log.Info().
		Int("carbon_sink", summary.CarbonSinkCount).
		Int("active_farm", summary.ActiveFarmCount).
		Str("total_rai", humanize.CommafWithDigits(summary.TotalRai, 2)).
		Str("forest_ratio", fmt.Sprintf("%.0f%%", summary.ForestRatio)).
		Str("sink_to_farm", summary.SinkToFarmRatio).
		Str("carbon_tonnes", humanize.Commaf(summary.CarbonTonnes)).
		Int("skipped", len(res.Skipped)).
		Str("size", humanize.Bytes(uint64(res.Bytes))).
		Msg("Summary")

	if cfg.Preview.Path != "" {
		projected := pipeline.Transformer().Target().EPSG() != 4326
		if err := writePreview(res, cfg.Preview, projected); err != nil {
			log.Fatal().Err(err).Str("path", cfg.Preview.Path).Msg("Failed to write preview")
		}
	}

	fmt.Printf("Successfully processed %d features. Saved to %s\n", len(res.Collection.Features), cfg.Output)
}

func writePreview(res *processor.Result, cfg config.Preview, projected bool) error {
	img, err := preview.Render(res.Collection, preview.Options{
		Width:     cfg.Width,
		Height:    cfg.Height,
		Projected: projected,
	})
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := preview.Encode(&buf, img); err != nil {
		return err
	}

	if err := processor.Save(cfg.Path, buf.Bytes()); err != nil {
		return err
	}

	log.Info().
		Str("path", cfg.Path).
		Str("size", humanize.Bytes(uint64(buf.Len()))).
		Msg("Preview written")

	return nil
}
