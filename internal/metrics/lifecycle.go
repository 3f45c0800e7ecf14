// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	controllerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "inqwatch_controller_state",
		Help: "Lifecycle controller state (1 for the active state, 0 otherwise)",
	}, []string{"state"})

	controllerMounts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inqwatch_controller_mounts_total",
		Help: "Lifecycle controllers mounted since process start",
	})
)

var controllerStates = []string{"idle", "starting", "active", "stopped"}

// SetControllerState records the lifecycle controller state.
func SetControllerState(state string) {
	for _, s := range controllerStates {
		value := 0.0
		if s == state {
			value = 1.0
		}
		controllerState.WithLabelValues(s).Set(value)
	}
}

// IncControllerMounts counts a mount.
func IncControllerMounts() {
	controllerMounts.Inc()
}
