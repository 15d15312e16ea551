package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loopapp/loop-vision/internal/config"
	"github.com/loopapp/loop-vision/internal/metrics"
	"github.com/loopapp/loop-vision/internal/server"
	"github.com/loopapp/loop-vision/internal/storage"
	"github.com/loopapp/loop-vision/internal/vision"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.RequireAPIKey(); err != nil {
		log.Fatal().Err(err).Msg("missing provider credentials")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	gateway, err := vision.NewGateway(ctx, cfg.Provider.Name, vision.GatewayOptions{
		APIKey:  cfg.Provider.APIKey,
		Model:   cfg.Provider.Model,
		BaseURL: cfg.Provider.BaseURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize model gateway")
	}
	log.Info().Str("provider", cfg.Provider.Name).Str("model", gateway.Model()).Msg("model gateway initialized")

	downloader := vision.NewDownloader().WithMaxSize(cfg.Images.MaxDownloadBytes)
	analyzer := vision.NewAnalyzer(gateway,
		vision.WithGenerationConfig(cfg.Generation.Vision()),
		vision.WithTimeout(cfg.Provider.RequestTimeout),
		vision.WithImageLoader(vision.NewImageLoader(downloader)),
	)

	var store storage.ItemStore
	if cfg.Storage.DSN != "" {
		store, err = storage.Open(ctx, cfg.Storage.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open item ledger")
		}
		defer store.Close()
		log.Info().Msg("item ledger enabled")
	}

	handler := server.NewHandler(analyzer, server.Options{
		Store:          store,
		Metrics:        metrics.New(),
		MaxUploadBytes: cfg.Images.MaxDownloadBytes,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server.SetupRouter(cfg.Server, handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("environment", cfg.Server.Environment).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}
