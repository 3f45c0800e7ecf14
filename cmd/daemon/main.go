// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/inqwatch/internal/config"
	"github.com/ManuGH/inqwatch/internal/daemon"
	"github.com/ManuGH/inqwatch/internal/health"
	xglog "github.com/ManuGH/inqwatch/internal/log"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

// maskURL removes user info from a URL string for safe logging.
func maskURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	return parsedURL.String()
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Configure logger with safe defaults until config is loaded
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: "inqwatch",
		Version: version,
	})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := strings.TrimSpace(*configPath)
	loader := config.NewLoader(path, version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.Log.Level,
		Service: cfg.Log.Service,
		Version: cfg.Version,
	})
	logger = xglog.WithComponent("daemon")

	if path != "" {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file").
			Str("path", path).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}
	for _, key := range loader.UnknownEnvKeys() {
		logger.Warn().
			Str("event", "config.unknown_env").
			Str("key", key).
			Msg("ignoring unknown environment variable")
	}

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "startup.check_failed").
			Msg("Startup checks failed. Please verify configuration and permissions.")
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.API.ListenAddr).
		Msg("starting inqwatch")

	logger.Info().Msgf("→ Stream: %s", maskURL(cfg.Stream.URL))
	logger.Info().Msgf("→ Token sources: %s", describeTokenSources(cfg.Token))
	logger.Info().Msgf("→ Sound: %s", cfg.Notify.Sound)
	if cfg.API.ListenAddr == "" {
		logger.Warn().Msg("→ Admin API: disabled")
	}

	app, _, err := daemon.Bootstrap(ctx, cfg, daemon.Overrides{})
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "bootstrap.failed").
			Msg("failed to wire daemon")
	}

	if err := app.Run(ctx); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "manager.failed").
			Msg("daemon app failed")
	}

	logger.Info().Msg("daemon exiting")
}

func describeTokenSources(cfg config.TokenConfig) string {
	var sources []string
	if cfg.Value != "" {
		sources = append(sources, "static")
	}
	if cfg.File != "" {
		sources = append(sources, "file("+cfg.File+")")
	}
	if cfg.Redis.Enabled() {
		sources = append(sources, "redis("+cfg.Redis.Addr+"/"+cfg.Redis.Key+")")
	}
	if len(sources) == 0 {
		return "none (stream waits for a token)"
	}
	return strings.Join(sources, ", ")
}
