// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package notify turns decoded inquiries into persistent alerts and an
// audible cue.
package notify

import (
	"errors"
	"time"

	"github.com/ManuGH/inqwatch/internal/inquiry"
)

// InquiriesPath is where a clicked alert navigates to.
const InquiriesPath = "/inquiries"

// ErrAlertNotFound is returned for actions on unknown or dismissed alerts.
var ErrAlertNotFound = errors.New("notify: alert not found")

// Alert is one raised notification. Persistent alerts stay visible until
// dismissed.
type Alert struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Persistent  bool      `json:"persistent"`
	CreatedAt   time.Time `json:"created_at"`
	Epoch       uint64    `json:"epoch"`
	EventID     string    `json:"event_id,omitempty"`
}

// NavigationIntent is the side effect of clicking an alert.
type NavigationIntent struct {
	AlertID string    `json:"alert_id"`
	Target  string    `json:"target"`
	At      time.Time `json:"at"`
}

func newAlert(id string, ev inquiry.Event, now time.Time) Alert {
	return Alert{
		ID:          id,
		Title:       ev.Title(),
		Description: ev.Description(),
		Persistent:  true,
		CreatedAt:   now,
		Epoch:       ev.Epoch,
		EventID:     ev.FrameID,
	}
}
