// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	streamConnectAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inqwatch_stream_connect_attempts_total",
		Help: "Inquiry stream connection attempts by outcome",
	}, []string{"outcome"})

	streamState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "inqwatch_stream_state",
		Help: "Current inquiry stream connection state (1 for the active state, 0 otherwise)",
	}, []string{"state"})

	streamEpoch = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inqwatch_stream_epoch",
		Help: "Epoch of the most recent inquiry stream connection",
	})

	streamRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inqwatch_stream_retries_scheduled_total",
		Help: "Reconnect attempts scheduled by failure class",
	}, []string{"reason"})

	streamFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inqwatch_stream_frames_total",
		Help: "Frames received on the inquiry stream by type",
	}, []string{"type"})

	streamDecodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inqwatch_stream_decode_failures_total",
		Help: "NEW_INQUIRY frames dropped because the payload could not be decoded",
	})
)

var streamStates = []string{"connecting", "open", "retrying", "closed"}

// Connect attempt outcomes.
const (
	OutcomeOpen           = "open"
	OutcomeNoToken        = "no_token"
	OutcomeUnauthorized   = "unauthorized"
	OutcomeHTTPError      = "http_error"
	OutcomeTransportError = "transport_error"
)

// Frame types.
const (
	FrameKeepAlive = "keepalive"
	FrameInquiry   = "inquiry"
	FrameOther     = "other"
)

// RecordConnectAttempt counts a connection attempt result.
func RecordConnectAttempt(outcome string) {
	streamConnectAttempts.WithLabelValues(outcome).Inc()
}

// SetStreamState records the current connection state.
func SetStreamState(state string) {
	for _, s := range streamStates {
		value := 0.0
		if s == state {
			value = 1.0
		}
		streamState.WithLabelValues(s).Set(value)
	}
}

// SetStreamEpoch records the epoch of the current connection.
func SetStreamEpoch(epoch uint64) {
	streamEpoch.Set(float64(epoch))
}

// RecordRetryScheduled counts a scheduled reconnect.
func RecordRetryScheduled(reason string) {
	streamRetries.WithLabelValues(reason).Inc()
}

// RecordFrame counts a received frame.
func RecordFrame(frameType string) {
	streamFrames.WithLabelValues(frameType).Inc()
}

// RecordDecodeFailure counts a dropped malformed frame.
func RecordDecodeFailure() {
	streamDecodeFailures.Inc()
}
