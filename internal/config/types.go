// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the daemon configuration.
//
// Precedence is ENV > YAML file > defaults. The YAML file is parsed strictly:
// unknown keys are an error.
package config

import "time"

// AppConfig is the complete, validated daemon configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	Stream    StreamConfig    `yaml:"stream"`
	Token     TokenConfig     `yaml:"token"`
	Notify    NotifyConfig    `yaml:"notify"`
	API       APIConfig       `yaml:"api"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// StreamConfig configures the inquiry event stream.
type StreamConfig struct {
	URL              string        `yaml:"url"`
	UserAgent        string        `yaml:"userAgent"`
	HeartbeatTimeout time.Duration `yaml:"heartbeatTimeout"`
	HandshakeTimeout time.Duration `yaml:"handshakeTimeout"`
	Retry            RetryConfig   `yaml:"retry"`
}

// RetryConfig holds the reconnect delay per failure class.
type RetryConfig struct {
	NoToken      time.Duration `yaml:"noToken"`
	Unauthorized time.Duration `yaml:"unauthorized"`
	Transport    time.Duration `yaml:"transport"`
}

// TokenConfig selects the bearer token sources. They are consulted in the
// order value, file, redis; the first with a usable token wins.
type TokenConfig struct {
	Value string           `yaml:"value"`
	File  string           `yaml:"file"`
	Redis RedisTokenConfig `yaml:"redis"`
}

// RedisTokenConfig mirrors a token stored under a Redis key.
type RedisTokenConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Key      string        `yaml:"key"`
	Interval time.Duration `yaml:"interval"`
}

// Enabled reports whether a Redis source is configured.
func (r RedisTokenConfig) Enabled() bool { return r.Addr != "" }

// Sound cue modes.
const (
	SoundBell    = "bell"
	SoundCommand = "command"
	SoundNone    = "none"
)

// NotifyConfig configures alerts and the audible cue.
type NotifyConfig struct {
	Sound        string        `yaml:"sound"`
	SoundCommand string        `yaml:"soundCommand"`
	CueTimeout   time.Duration `yaml:"cueTimeout"`
	CueInterval  time.Duration `yaml:"cueInterval"`
	CueBurst     int           `yaml:"cueBurst"`
	LogAlerts    bool          `yaml:"logAlerts"`
}

// APIConfig configures the admin HTTP surface.
type APIConfig struct {
	ListenAddr string `yaml:"listenAddr"`
	// RateLimit is the number of requests per client IP per minute; 0 disables it.
	RateLimit int `yaml:"rateLimit"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Environment  string  `yaml:"environment"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}
