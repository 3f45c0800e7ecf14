// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ManuGH/inqwatch/internal/inquiry"
	"github.com/ManuGH/inqwatch/internal/log"
	"github.com/ManuGH/inqwatch/internal/sse"
)

const relayBuffer = 32

// relayEvent is the JSON form of a relayed inquiry.
type relayEvent struct {
	FirstName    string                     `json:"firstName"`
	LastName     string                     `json:"lastName"`
	VehicleYear  string                     `json:"vehicleYear"`
	VehicleMake  string                     `json:"vehicleMake"`
	VehicleModel string                     `json:"vehicleModel"`
	Title        string                     `json:"title"`
	Description  string                     `json:"description"`
	Epoch        uint64                     `json:"epoch"`
	ReceivedAt   time.Time                  `json:"receivedAt"`
	Payload      map[string]json.RawMessage `json:"payload,omitempty"`
}

func newRelayEvent(ev inquiry.Event) relayEvent {
	return relayEvent{
		FirstName:    ev.FirstName,
		LastName:     ev.LastName,
		VehicleYear:  ev.VehicleYear,
		VehicleMake:  ev.VehicleMake,
		VehicleModel: ev.VehicleModel,
		Title:        ev.Title(),
		Description:  ev.Description(),
		Epoch:        ev.Epoch,
		ReceivedAt:   ev.ReceivedAt,
		Payload:      ev.Raw,
	}
}

// handleEventRelay re-broadcasts decoded inquiries to local consumers as an
// event stream. There is no replay; a slow reader loses events.
func (s *Server) handleEventRelay(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "relay")
	rc := http.NewResponseController(w)

	sub := s.deps.Events.SubscribeChan(relayBuffer)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		logger.Warn().Err(err).Msg("response writer cannot flush; relay unavailable")
		return
	}

	keepAlive := time.NewTicker(s.deps.RelayKeepAlive)
	defer keepAlive.Stop()

	logger.Info().
		Str(log.FieldEvent, "relay.subscribed").
		Int("listeners", s.deps.Events.Len()).
		Msg("event relay client connected")
	defer logger.Info().Str(log.FieldEvent, "relay.unsubscribed").Msg("event relay client disconnected")

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if err := sse.WriteComment(w, "keepalive"); err != nil {
				return
			}
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			data, err := json.Marshal(newRelayEvent(ev))
			if err != nil {
				logger.Error().Err(err).Msg("encode relay event")
				continue
			}
			if err := sse.WriteFrame(w, sse.Frame{Event: inquiry.EventType, ID: ev.FrameID, Data: string(data)}); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
