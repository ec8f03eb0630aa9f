package main

import (
	"fmt"
	"io"
	"os"

	"github.com/woozymasta/rotfarm/internal/geo"
	"github.com/woozymasta/rotfarm/internal/output"
	"github.com/woozymasta/rotfarm/internal/processor"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Input  string `short:"i" long:"in"     description:"Input GeoJSON file. Reads from stdin if empty"`
	Output string `short:"o" long:"out"    description:"Output file path. Writes to stdout if empty"`
	Format string `short:"f" long:"format" description:"Output format" choice:"json" choice:"min" choice:"yaml" choice:"fgb" default:"json"`
	EPSG   int    `short:"e" long:"epsg"   description:"EPSG code recorded in FlatGeobuf headers" default:"4326"`
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

	// Read Input
	var c *geo.Collection
	var err error

	if opts.Input != "" {
		c, err = processor.Load(opts.Input)
	} else {
		var data []byte
		data, err = io.ReadAll(os.Stdin)
		if err == nil {
			c, err = geo.ParseCollection(data)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}

	format, err := output.ParseFormat(opts.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	outputData, err := output.Encode(c, output.Options{Format: format, EPSG: opts.EPSG})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding data: %v\n", err)
		os.Exit(1)
	}

	if opts.Output != "" {
		if err := processor.Save(opts.Output, outputData); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Successfully converted %d features to %s (format: %s)\n", len(c.Features), opts.Output, opts.Format)
	} else {
		_, _ = os.Stdout.Write(outputData)
	}
}
