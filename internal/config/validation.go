// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// Validate checks cfg and reports every problem at once.
func Validate(cfg AppConfig) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if cfg.Stream.URL == "" {
		add("stream.url is required")
	} else if u, err := url.Parse(cfg.Stream.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("stream.url %q must be an absolute http(s) URL", cfg.Stream.URL)
	}
	if cfg.Stream.HeartbeatTimeout <= 0 {
		add("stream.heartbeatTimeout must be positive")
	}
	if cfg.Stream.HandshakeTimeout <= 0 {
		add("stream.handshakeTimeout must be positive")
	}
	if cfg.Stream.Retry.NoToken <= 0 || cfg.Stream.Retry.Unauthorized <= 0 || cfg.Stream.Retry.Transport <= 0 {
		add("stream.retry delays must be positive")
	}

	if cfg.Token.Value == "" && cfg.Token.File == "" && !cfg.Token.Redis.Enabled() {
		add("no token source configured (token.value, token.file or token.redis.addr)")
	}
	if cfg.Token.Redis.Enabled() {
		if cfg.Token.Redis.Key == "" {
			add("token.redis.key is required when token.redis.addr is set")
		}
		if cfg.Token.Redis.Interval <= 0 {
			add("token.redis.interval must be positive")
		}
	}

	switch cfg.Notify.Sound {
	case SoundBell, SoundNone:
	case SoundCommand:
		if strings.TrimSpace(cfg.Notify.SoundCommand) == "" {
			add("notify.soundCommand is required when notify.sound is %q", SoundCommand)
		}
	default:
		add("notify.sound %q is not one of bell, command, none", cfg.Notify.Sound)
	}
	if cfg.Notify.CueBurst < 1 {
		add("notify.cueBurst must be at least 1")
	}

	if cfg.API.ListenAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.API.ListenAddr); err != nil {
			add("api.listenAddr %q: %v", cfg.API.ListenAddr, err)
		}
	}
	if cfg.API.RateLimit < 0 {
		add("api.rateLimit must not be negative")
	}

	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		add("log.level %q: %v", cfg.Log.Level, err)
	}

	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.Exporter != "grpc" && cfg.Telemetry.Exporter != "http" {
			add("telemetry.exporter %q must be grpc or http", cfg.Telemetry.Exporter)
		}
		if cfg.Telemetry.Endpoint == "" {
			add("telemetry.endpoint is required when telemetry is enabled")
		}
	}
	if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
		add("telemetry.samplingRate must be within [0, 1]")
	}

	if cfg.ShutdownTimeout <= 0 {
		add("shutdownTimeout must be positive")
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
