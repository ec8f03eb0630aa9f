package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/woozymasta/rotfarm/internal/logger"
	"github.com/woozymasta/rotfarm/internal/preview"
	"github.com/woozymasta/rotfarm/internal/server"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	Input         string `short:"i" long:"in"             env:"INPUT_FILE"     description:"Processed GeoJSON file to serve" default:"minified_farms.json"`
	Addr          string `short:"a" long:"addr"           env:"LISTEN_ADDRESS" description:"Address to listen on"            default:"0.0.0.0"`
	Port          int    `short:"p" long:"port"           env:"LISTEN_PORT"    description:"Port to listen on"               default:"8080"`
	PreviewWidth  int    `long:"preview-width"            env:"PREVIEW_WIDTH"  description:"Preview width in pixels"         default:"1024"`
	PreviewHeight int    `long:"preview-height"           env:"PREVIEW_HEIGHT" description:"Preview height in pixels"        default:"768"`
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

	// Setup Logging
	opts.Logger.Setup()

	srvCtx, err := server.NewServerContext(opts.Input, preview.Options{
		Width:  opts.PreviewWidth,
		Height: opts.PreviewHeight,
	})
	if err != nil {
		log.Fatal().Err(err).Str("path", opts.Input).Msg("Failed to load farms")
	}

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           server.RequestLogger(srvCtx.Routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	log.Info().
		Str("addr", listenAddr).
		Int("features", srvCtx.Summary.Features).
		Msg("Web server started")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}

	log.Info().Msg("Web server stopped")
}
