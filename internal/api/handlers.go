// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"net/http"

	"github.com/ManuGH/inqwatch/internal/lifecycle"
	"github.com/ManuGH/inqwatch/internal/log"
	"github.com/ManuGH/inqwatch/internal/notify"
	"github.com/go-chi/chi/v5"
)

type alertsResponse struct {
	Alerts []notify.Alert `json:"alerts"`
	Count  int            `json:"count"`
}

func (s *Server) handleStreamStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Scope.Status())
}

// handleRemount replaces the notification scope: the old client is closed
// before the new one connects.
func (s *Server) handleRemount(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Scope.Remount(); err != nil {
		if errors.Is(err, lifecycle.ErrHostClosed) {
			writeConflict(w, r, err)
			return
		}
		writeInternal(w, r, err)
		return
	}
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Info().
		Str(log.FieldEvent, "api.remount").
		Msg("notification scope remounted by operator")
	writeJSON(w, http.StatusAccepted, s.deps.Scope.Status())
}

func (s *Server) handleListAlerts(w http.ResponseWriter, _ *http.Request) {
	alerts := s.deps.Alerts.List()
	if alerts == nil {
		alerts = []notify.Alert{}
	}
	writeJSON(w, http.StatusOK, alertsResponse{Alerts: alerts, Count: len(alerts)})
}

func (s *Server) handleDismissAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Alerts.Dismiss(id); err != nil {
		if errors.Is(err, notify.ErrAlertNotFound) {
			writeNotFound(w, r, "alert "+id)
			return
		}
		writeInternal(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClickAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	intent, err := s.deps.Alerts.Click(id)
	if err != nil {
		if errors.Is(err, notify.ErrAlertNotFound) {
			writeNotFound(w, r, "alert "+id)
			return
		}
		writeInternal(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}
