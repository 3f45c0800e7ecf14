// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package inquiry defines the decoded NEW_INQUIRY notification payload.
package inquiry

import (
	"encoding/json"
	"strings"
	"time"
)

// EventType is the SSE event name carrying inquiry payloads.
const EventType = "NEW_INQUIRY"

// Event is an immutable decoded inquiry notification.
type Event struct {
	FirstName    string
	LastName     string
	VehicleYear  string
	VehicleMake  string
	VehicleModel string

	// Raw holds every top-level payload field undecoded, including the ones
	// mapped above, for downstream consumers.
	Raw map[string]json.RawMessage

	// Epoch identifies the connection the event arrived on.
	Epoch uint64
	// FrameID is the SSE event ID of the carrying frame, if the server sent one.
	FrameID    string
	ReceivedAt time.Time
}

// Title is the alert headline, e.g. "New Inquiry from Jane Doe".
func (e Event) Title() string {
	return "New Inquiry from " + joinNonEmpty(e.FirstName, e.LastName)
}

// Description is the alert body, e.g. "Vehicle: 2020 Honda Civic".
func (e Event) Description() string {
	return "Vehicle: " + joinNonEmpty(e.VehicleYear, e.VehicleMake, e.VehicleModel)
}

// Field returns a pass-through payload field by name.
func (e Event) Field(name string) (json.RawMessage, bool) {
	v, ok := e.Raw[name]
	return v, ok
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
