package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"raiders/config"
	"raiders/experiments"
	"raiders/plugin"
	"raiders/scheduler"
	"raiders/telemetry"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	mode := flag.String("mode", "serve", "serve or experiment")
	raids := flag.Int("raids", experiments.NumRaids, "Raids per run in experiment mode")
	out := flag.String("out", "results", "Output folder in experiment mode")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	setupLogging(cfg.Log)

	switch *mode {
	case "serve":
		err = serve(cfg)
	case "experiment":
		_, err = experiments.RunRaidExperiment(cfg, *raids, *out)
	default:
		log.Fatal().Msgf("unknown mode %q", *mode)
	}
	if err != nil {
		log.Fatal().Err(err).Msgf("%s failed", *mode)
	}
}

func setupLogging(cfg config.Log) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Console {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
}

func serve(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	p, err := plugin.NewWithConfig(cfg, scheduler.LocalTimer{})
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close raid sinks")
		}
	}()

	if feed := p.Feed(); feed != nil {
		mux := http.NewServeMux()
		mux.Handle("/feed", feed.Handler())
		srv := &http.Server{Addr: cfg.Feed.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info().Msgf("raid feed listening on ws://%s/feed", cfg.Feed.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("raid feed stopped")
			}
		}()
		defer srv.Close()
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")
	return nil
}
