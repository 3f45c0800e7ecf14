// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon wires the configured components together and runs them.
package daemon

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ManuGH/inqwatch/internal/api"
	"github.com/ManuGH/inqwatch/internal/bus"
	"github.com/ManuGH/inqwatch/internal/clock"
	"github.com/ManuGH/inqwatch/internal/config"
	"github.com/ManuGH/inqwatch/internal/health"
	"github.com/ManuGH/inqwatch/internal/inquiry"
	"github.com/ManuGH/inqwatch/internal/lifecycle"
	"github.com/ManuGH/inqwatch/internal/log"
	"github.com/ManuGH/inqwatch/internal/notify"
	"github.com/ManuGH/inqwatch/internal/platform/httpx"
	"github.com/ManuGH/inqwatch/internal/stream"
	"github.com/ManuGH/inqwatch/internal/telemetry"
	"github.com/ManuGH/inqwatch/internal/token"
)

// InquiryTopic labels the inquiry bus in metrics.
const InquiryTopic = "inquiry"

// Overrides replace components that are otherwise built from the config.
type Overrides struct {
	// Dialer replaces the HTTP dialer.
	Dialer stream.Dialer
	// Player replaces the configured sound cue.
	Player notify.Player
	// Clock drives stream timers.
	Clock clock.Clock
	// BellOutput receives the terminal bell; defaults to stderr.
	BellOutput io.Writer
}

// Components are the wired runtime pieces, exposed for the command and tests.
type Components struct {
	Config config.AppConfig
	Tokens token.Provider
	Bus    *bus.Bus[inquiry.Event]
	Board  *notify.Board
	Sink   *notify.Sink
	Host   *lifecycle.Host
	Health *health.Manager
	API    *api.Server
}

// Bootstrap builds the daemon from a validated configuration. Resources that
// need cleanup are registered as shutdown hooks on the returned app's
// manager; on error everything opened so far is released.
func Bootstrap(ctx context.Context, cfg config.AppConfig, ov Overrides) (app *App, comps *Components, err error) {
	logger := log.WithComponent("daemon")

	var hooks []namedHook
	defer func() {
		if err == nil {
			return
		}
		for i := len(hooks) - 1; i >= 0; i-- {
			_ = hooks[i].hook(context.WithoutCancel(ctx))
		}
	}()

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Log.Service,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: %w", err)
	}
	hooks = append(hooks, namedHook{name: "telemetry", hook: tp.Shutdown})
	if cfg.Telemetry.Enabled {
		logger.Info().
			Str("exporter", cfg.Telemetry.Exporter).
			Str("endpoint", cfg.Telemetry.Endpoint).
			Float64("sampling_rate", cfg.Telemetry.SamplingRate).
			Msg("Telemetry initialized")
	}

	hm := health.NewManager(cfg.Version)

	tokens, workers, tokenHooks, err := buildTokens(ctx, cfg.Token, hm)
	hooks = append(hooks, tokenHooks...)
	if err != nil {
		return nil, nil, err
	}
	hm.RegisterChecker(health.NewTokenChecker(tokens))

	player := ov.Player
	if player == nil {
		player, err = buildPlayer(cfg.Notify, ov.BellOutput)
		if err != nil {
			return nil, nil, err
		}
	}

	board := notify.NewBoard(notify.WithNavigate(func(intent notify.NavigationIntent) {
		logger.Info().
			Str(log.FieldEvent, "alert.navigate").
			Str(log.FieldAlertID, intent.AlertID).
			Str("target", intent.Target).
			Msg("alert clicked, navigating to inquiries")
	}))
	presenters := []notify.Presenter{board}
	if cfg.Notify.LogAlerts {
		presenters = append(presenters, notify.NewLogPresenter(log.WithComponent("alerts")))
	}
	sink := notify.NewSink(notify.SinkOptions{
		Player:      player,
		Presenters:  presenters,
		CueTimeout:  cfg.Notify.CueTimeout,
		CueInterval: cfg.Notify.CueInterval,
		CueBurst:    cfg.Notify.CueBurst,
	})

	events := bus.New[inquiry.Event](InquiryTopic)

	dialer := ov.Dialer
	if dialer == nil {
		dialer = &stream.HTTPDialer{
			URL:       cfg.Stream.URL,
			Client:    httpx.NewStreamClient(cfg.Stream.HandshakeTimeout),
			UserAgent: cfg.Stream.UserAgent,
		}
	}
	streamOpts := stream.Options{
		Tokens: tokens,
		Dialer: dialer,
		Retry: stream.RetryPolicy{
			NoToken:      cfg.Stream.Retry.NoToken,
			Unauthorized: cfg.Stream.Retry.Unauthorized,
			Transport:    cfg.Stream.Retry.Transport,
		},
		HeartbeatTimeout: cfg.Stream.HeartbeatTimeout,
		Clock:            ov.Clock,
	}
	host := lifecycle.NewHost(func() *lifecycle.Controller {
		return lifecycle.New(lifecycle.Config{
			Stream: streamOpts,
			Sink:   sink,
			Bus:    events,
		})
	})
	hm.RegisterChecker(health.NewStreamChecker(host.Status))

	srv, err := api.New(api.Deps{
		Health:         hm,
		Scope:          host,
		Alerts:         board,
		Events:         events,
		RateLimit:      cfg.API.RateLimit,
		TracingService: cfg.Log.Service,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("api: %w", err)
	}

	mgr, err := NewManager(ServerConfigFrom(cfg), Deps{
		Logger:     logger,
		APIHandler: srv.Handler(),
	})
	if err != nil {
		return nil, nil, err
	}
	// Hooks run LIFO: the scope stops before in-flight cues are drained.
	hooks = append(hooks, namedHook{name: "sound-cues", hook: sink.Drain},
		namedHook{name: "scope", hook: func(context.Context) error {
			host.Close()
			return nil
		}})
	for _, h := range hooks {
		mgr.RegisterShutdownHook(h.name, h.hook)
	}

	logger.Info().
		Str(log.FieldURL, cfg.Stream.URL).
		Str("sound", cfg.Notify.Sound).
		Str("listen", cfg.API.ListenAddr).
		Msg("daemon wired")

	return NewApp(logger, mgr, host, workers...), &Components{
		Config: cfg,
		Tokens: tokens,
		Bus:    events,
		Board:  board,
		Sink:   sink,
		Host:   host,
		Health: hm,
		API:    srv,
	}, nil
}

// buildTokens chains the configured sources in the order value, file, redis.
func buildTokens(ctx context.Context, cfg config.TokenConfig, hm *health.Manager) (token.Provider, []Worker, []namedHook, error) {
	var (
		chain   token.Chain
		workers []Worker
		hooks   []namedHook
	)

	if cfg.Value != "" {
		chain = append(chain, token.Static(cfg.Value))
	}

	if cfg.File != "" {
		fp, err := token.NewFileProvider(cfg.File)
		if err != nil {
			return nil, nil, hooks, fmt.Errorf("token file: %w", err)
		}
		if err := fp.Start(ctx); err != nil {
			return nil, nil, hooks, fmt.Errorf("token file: %w", err)
		}
		hooks = append(hooks, namedHook{name: "token-file", hook: func(context.Context) error { return fp.Close() }})
		chain = append(chain, fp)
	}

	if cfg.Redis.Enabled() {
		rp, err := token.NewRedisProvider(ctx, token.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
			Interval: cfg.Redis.Interval,
		})
		if err != nil {
			return nil, nil, hooks, fmt.Errorf("token redis: %w", err)
		}
		hooks = append(hooks, namedHook{name: "token-redis", hook: func(context.Context) error { return rp.Close() }})
		workers = append(workers, Worker{Name: "token-redis", Run: rp.Run})
		hm.RegisterChecker(health.NewPingChecker("token_redis", rp.Ping))
		chain = append(chain, rp)
	}

	return chain, workers, hooks, nil
}

func buildPlayer(cfg config.NotifyConfig, bell io.Writer) (notify.Player, error) {
	switch cfg.Sound {
	case config.SoundNone:
		return notify.NoopPlayer{}, nil
	case config.SoundCommand:
		p, err := notify.ParseCommand(cfg.SoundCommand)
		if err != nil {
			return nil, fmt.Errorf("sound command: %w", err)
		}
		return p, nil
	default:
		if bell == nil {
			bell = os.Stderr
		}
		return notify.NewBellPlayer(bell), nil
	}
}
