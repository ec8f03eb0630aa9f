package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/woozymasta/rotfarm/internal/geo"
	"github.com/woozymasta/rotfarm/internal/output"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Default coordinate reference systems: UTM zone 47N to WGS84.
const (
	DefaultSourceCRS = "EPSG:32647"
	DefaultTargetCRS = "EPSG:4326"
)

// Options configures a Pipeline.
type Options struct {
	SourceCRS string
	TargetCRS string

	// Workers is the number of features processed concurrently. Values below 1 mean 1.
	Workers int

	// SkipInvalid drops features that fail to process instead of aborting the run.
	SkipInvalid bool
}

// Pipeline converts feature collections with a fixed transformer.
type Pipeline struct {
	transformer *geo.Transformer
	workers     int
	skipInvalid bool
}

// Result describes a processed collection.
type Result struct {
	Collection *geo.Collection

	// Skipped lists dropped features in input order. Only set with SkipInvalid.
	Skipped []*FeatureError

	// Bytes is the size of the written output. Only set by Run.
	Bytes int
}

// New validates the CRS configuration and builds a Pipeline.
// Unresolvable CRS identifiers are reported as ErrConfiguration.
func New(opts Options) (*Pipeline, error) {
	if opts.SourceCRS == "" {
		opts.SourceCRS = DefaultSourceCRS
	}
	if opts.TargetCRS == "" {
		opts.TargetCRS = DefaultTargetCRS
	}

	t, err := geo.NewTransformer(opts.SourceCRS, opts.TargetCRS)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	return &Pipeline{
		transformer: t,
		workers:     workers,
		skipInvalid: opts.SkipInvalid,
	}, nil
}

// Transformer returns the coordinate transformer used by the pipeline.
func (p *Pipeline) Transformer() *geo.Transformer {
	return p.transformer
}

// Process converts every feature of c. Output order equals input order.
// Without SkipInvalid the first failing feature aborts processing.
func (p *Pipeline) Process(ctx context.Context, c *geo.Collection) (*Result, error) {
	processed := make([][]byte, len(c.Features))
	failed := make([]*FeatureError, len(c.Features))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, raw := range c.Features {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			f, _, err := ProcessFeature(raw, p.transformer)
			if err != nil {
				fe := &FeatureError{Index: i, ID: featureID(raw), Err: err}
				if !p.skipInvalid {
					return fe
				}
				failed[i] = fe
				return nil
			}

			processed[i] = f
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	features := make([][]byte, 0, len(processed))
	var skipped []*FeatureError
	for i, f := range processed {
		if failed[i] != nil {
			log.Warn().
				Err(failed[i].Err).
				Int("index", i).
				Str("id", failed[i].ID).
				Msg("Skipping invalid feature")

			skipped = append(skipped, failed[i])
			continue
		}
		features = append(features, f)
	}

	return &Result{
		Collection: c.WithFeatures(features),
		Skipped:    skipped,
	}, nil
}

// Run loads the input file, processes it and writes the output file.
// Nothing is written unless every step succeeds.
func (p *Pipeline) Run(ctx context.Context, in, out string, format output.Format) (*Result, error) {
	start := time.Now()

	c, err := Load(in)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("input", in).
		Int("features", len(c.Features)).
		Int("workers", p.workers).
		Str("source_crs", geo.CRSName(p.transformer.Source().EPSG())).
		Str("target_crs", geo.CRSName(p.transformer.Target().EPSG())).
		Msg("Processing features")

	res, err := p.Process(ctx, c)
	if err != nil {
		return nil, err
	}

	data, err := output.Encode(res.Collection, output.Options{
		Format: format,
		EPSG:   p.transformer.Target().EPSG(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}

	if err := Save(out, data); err != nil {
		return nil, err
	}
	res.Bytes = len(data)

	log.Info().
		Str("output", out).
		Str("format", string(format)).
		Int("written", len(res.Collection.Features)).
		Int("skipped", len(res.Skipped)).
		Dur("took", time.Since(start)).
		Msg("Output written")

	return res, nil
}
