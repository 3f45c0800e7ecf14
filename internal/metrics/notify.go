// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inqwatch_notifications_total",
		Help: "Inquiry alerts raised by presenter and result",
	}, []string{"presenter", "result"})

	SoundCuesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inqwatch_sound_cues_total",
		Help: "Audible cues by result (played, failed, throttled)",
	}, []string{"result"})

	alertsVisible = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inqwatch_alerts_visible",
		Help: "Alerts currently visible (not yet dismissed)",
	})

	alertActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inqwatch_alert_actions_total",
		Help: "User actions on alerts (dismiss, click)",
	}, []string{"action"})
)

// RecordNotification counts one presenter delivery.
func RecordNotification(presenter, result string) {
	NotificationsTotal.WithLabelValues(presenter, result).Inc()
}

// RecordSoundCue counts one sound cue outcome.
func RecordSoundCue(result string) {
	SoundCuesTotal.WithLabelValues(result).Inc()
}

// SetAlertsVisible records how many alerts remain on the board.
func SetAlertsVisible(n int) {
	alertsVisible.Set(float64(n))
}

// RecordAlertAction counts a dismiss or click.
func RecordAlertAction(action string) {
	alertActions.WithLabelValues(action).Inc()
}
