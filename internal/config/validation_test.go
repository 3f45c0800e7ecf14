// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() AppConfig {
	cfg := Defaults()
	cfg.Stream.URL = "https://api.example.com/stream"
	cfg.Token.Value = "tok"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"valid", func(*AppConfig) {}, ""},
		{"missing url", func(c *AppConfig) { c.Stream.URL = "" }, "stream.url is required"},
		{"relative url", func(c *AppConfig) { c.Stream.URL = "/stream" }, "absolute http(s) URL"},
		{"ws scheme", func(c *AppConfig) { c.Stream.URL = "ws://x/stream" }, "absolute http(s) URL"},
		{"zero heartbeat", func(c *AppConfig) { c.Stream.HeartbeatTimeout = 0 }, "heartbeatTimeout"},
		{"zero retry", func(c *AppConfig) { c.Stream.Retry.Transport = 0 }, "retry delays"},
		{"no token source", func(c *AppConfig) { c.Token.Value = "" }, "no token source"},
		{"redis only", func(c *AppConfig) { c.Token.Value = ""; c.Token.Redis.Addr = "localhost:6379" }, ""},
		{"redis without key", func(c *AppConfig) { c.Token.Redis.Addr = "localhost:6379"; c.Token.Redis.Key = "" }, "token.redis.key"},
		{"command without program", func(c *AppConfig) { c.Notify.Sound = SoundCommand }, "notify.soundCommand"},
		{"unknown sound", func(c *AppConfig) { c.Notify.Sound = "trumpet" }, "notify.sound"},
		{"bad listen addr", func(c *AppConfig) { c.API.ListenAddr = "8088" }, "api.listenAddr"},
		{"api disabled", func(c *AppConfig) { c.API.ListenAddr = "" }, ""},
		{"bad level", func(c *AppConfig) { c.Log.Level = "loud" }, "log.level"},
		{"bad exporter", func(c *AppConfig) { c.Telemetry.Enabled = true; c.Telemetry.Exporter = "zipkin" }, "telemetry.exporter"},
		{"bad sampling", func(c *AppConfig) { c.Telemetry.SamplingRate = 2 }, "samplingRate"},
		{"zero shutdown", func(c *AppConfig) { c.ShutdownTimeout = -time.Second }, "shutdownTimeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Stream.URL = ""
	cfg.Log.Level = "loud"
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stream.url")
	assert.Contains(t, err.Error(), "log.level")
}
