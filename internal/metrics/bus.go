// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BusPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inqwatch_bus_published_total",
		Help: "Total number of events published on the in-process bus",
	}, []string{"topic"})

	BusDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inqwatch_bus_dropped_total",
		Help: "Total number of in-process bus deliveries dropped by topic and reason",
	}, []string{"topic", "reason"})

	busListeners = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "inqwatch_bus_listeners",
		Help: "Currently registered bus listeners",
	}, []string{"topic"})
)

// IncBusPublished records one published event.
func IncBusPublished(topic string) {
	if topic == "" {
		topic = "unknown"
	}
	BusPublishedTotal.WithLabelValues(topic).Inc()
}

// IncBusDrop records a dropped delivery for the given topic.
func IncBusDrop(topic string) {
	IncBusDropReason(topic, "full")
}

// IncBusDropReason records a dropped delivery with a concrete reason.
func IncBusDropReason(topic, reason string) {
	if topic == "" {
		topic = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	BusDroppedTotal.WithLabelValues(topic, reason).Inc()
}

// SetBusListeners records the number of registered listeners.
func SetBusListeners(topic string, n int) {
	busListeners.WithLabelValues(topic).Set(float64(n))
}
