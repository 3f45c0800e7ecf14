// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import "go.opentelemetry.io/otel/attribute"

// Attribute keys shared by stream and notification spans.
const (
	StreamEpochKey        = "stream.epoch"
	StreamConnectionIDKey = "stream.connection_id"
	StreamRetryCountKey   = "stream.retry_count"
	StreamOutcomeKey      = "stream.outcome"
)

// StreamAttributes creates connection-attempt span attributes.
func StreamAttributes(epoch uint64, connectionID string, retryCount int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int64(StreamEpochKey, int64(epoch)), //nolint:gosec // epochs stay far below MaxInt64
		attribute.Int(StreamRetryCountKey, retryCount),
	}
	if connectionID != "" {
		attrs = append(attrs, attribute.String(StreamConnectionIDKey, connectionID))
	}
	return attrs
}
