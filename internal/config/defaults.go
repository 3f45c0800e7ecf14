// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// Defaults returns the configuration used when neither file nor ENV set a
// value.
func Defaults() AppConfig {
	return AppConfig{
		Stream: StreamConfig{
			UserAgent:        "inqwatch",
			HeartbeatTimeout: 120 * time.Second,
			HandshakeTimeout: 15 * time.Second,
			Retry: RetryConfig{
				NoToken:      5 * time.Second,
				Unauthorized: 5 * time.Second,
				Transport:    3 * time.Second,
			},
		},
		Token: TokenConfig{
			Redis: RedisTokenConfig{
				Key:      "inqwatch:token",
				Interval: 10 * time.Second,
			},
		},
		Notify: NotifyConfig{
			Sound:       SoundBell,
			CueTimeout:  2 * time.Second,
			CueInterval: 2 * time.Second,
			CueBurst:    3,
			LogAlerts:   true,
		},
		API: APIConfig{
			ListenAddr: "127.0.0.1:8088",
			RateLimit:  120,
		},
		Log: LogConfig{
			Level:   "info",
			Service: "inqwatch",
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "production",
		},
		ShutdownTimeout: 10 * time.Second,
	}
}
