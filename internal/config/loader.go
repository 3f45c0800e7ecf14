// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence.
type Loader struct {
	configPath string
	version    string
	// ConsumedEnvKeys records every variable Load looked at.
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader. An empty path skips the file.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load applies defaults, then the file, then the environment, and validates
// the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadFile decodes the YAML file over cfg. Unknown fields are rejected.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	// Stream
	cfg.Stream.URL = l.envString("INQWATCH_STREAM_URL", cfg.Stream.URL)
	cfg.Stream.UserAgent = l.envString("INQWATCH_STREAM_USER_AGENT", cfg.Stream.UserAgent)
	cfg.Stream.HeartbeatTimeout = l.envDuration("INQWATCH_STREAM_HEARTBEAT_TIMEOUT", cfg.Stream.HeartbeatTimeout)
	cfg.Stream.HandshakeTimeout = l.envDuration("INQWATCH_STREAM_HANDSHAKE_TIMEOUT", cfg.Stream.HandshakeTimeout)
	cfg.Stream.Retry.NoToken = l.envDuration("INQWATCH_RETRY_NO_TOKEN", cfg.Stream.Retry.NoToken)
	cfg.Stream.Retry.Unauthorized = l.envDuration("INQWATCH_RETRY_UNAUTHORIZED", cfg.Stream.Retry.Unauthorized)
	cfg.Stream.Retry.Transport = l.envDuration("INQWATCH_RETRY_TRANSPORT", cfg.Stream.Retry.Transport)

	// Token sources
	cfg.Token.Value = l.envString("INQWATCH_TOKEN", cfg.Token.Value)
	cfg.Token.File = l.envString("INQWATCH_TOKEN_FILE", cfg.Token.File)
	cfg.Token.Redis.Addr = l.envString("INQWATCH_TOKEN_REDIS_ADDR", cfg.Token.Redis.Addr)
	cfg.Token.Redis.Password = l.envString("INQWATCH_TOKEN_REDIS_PASSWORD", cfg.Token.Redis.Password)
	cfg.Token.Redis.DB = l.envInt("INQWATCH_TOKEN_REDIS_DB", cfg.Token.Redis.DB)
	cfg.Token.Redis.Key = l.envString("INQWATCH_TOKEN_REDIS_KEY", cfg.Token.Redis.Key)
	cfg.Token.Redis.Interval = l.envDuration("INQWATCH_TOKEN_REDIS_INTERVAL", cfg.Token.Redis.Interval)

	// Notifications
	cfg.Notify.Sound = l.envString("INQWATCH_NOTIFY_SOUND", cfg.Notify.Sound)
	cfg.Notify.SoundCommand = l.envString("INQWATCH_NOTIFY_SOUND_COMMAND", cfg.Notify.SoundCommand)
	cfg.Notify.CueTimeout = l.envDuration("INQWATCH_NOTIFY_CUE_TIMEOUT", cfg.Notify.CueTimeout)
	cfg.Notify.CueInterval = l.envDuration("INQWATCH_NOTIFY_CUE_INTERVAL", cfg.Notify.CueInterval)
	cfg.Notify.CueBurst = l.envInt("INQWATCH_NOTIFY_CUE_BURST", cfg.Notify.CueBurst)
	cfg.Notify.LogAlerts = l.envBool("INQWATCH_NOTIFY_LOG_ALERTS", cfg.Notify.LogAlerts)

	// Admin API
	cfg.API.ListenAddr = l.envString("INQWATCH_API_LISTEN", cfg.API.ListenAddr)
	cfg.API.RateLimit = l.envInt("INQWATCH_API_RATE_LIMIT", cfg.API.RateLimit)

	// Logging
	cfg.Log.Level = l.envString("INQWATCH_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Service = l.envString("INQWATCH_LOG_SERVICE", cfg.Log.Service)

	// Telemetry
	cfg.Telemetry.Enabled = l.envBool("INQWATCH_TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Environment = l.envString("INQWATCH_TELEMETRY_ENVIRONMENT", cfg.Telemetry.Environment)
	cfg.Telemetry.Exporter = l.envString("INQWATCH_TELEMETRY_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString("INQWATCH_TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat("INQWATCH_TELEMETRY_SAMPLING_RATE", cfg.Telemetry.SamplingRate)

	cfg.ShutdownTimeout = l.envDuration("INQWATCH_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
}

// UnknownEnvKeys returns INQWATCH_* variables set in the environment that
// Load never read, usually typos.
func (l *Loader) UnknownEnvKeys() []string {
	var out []string
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		if _, ok := l.ConsumedEnvKeys[key]; !ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}
