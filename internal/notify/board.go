// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/inqwatch/internal/metrics"
)

const maxIntents = 64

// Board keeps visible alerts in arrival order until they are dismissed.
// It is a Presenter.
type Board struct {
	now        func() time.Time
	onNavigate func(NavigationIntent)

	mu      sync.Mutex
	alerts  []Alert
	intents []NavigationIntent
}

// BoardOption configures a Board.
type BoardOption func(*Board)

// WithNavigate registers a callback for alert clicks. It runs outside the
// board's lock.
func WithNavigate(fn func(NavigationIntent)) BoardOption {
	return func(b *Board) { b.onNavigate = fn }
}

// WithBoardClock overrides the time source for intents.
func WithBoardClock(now func() time.Time) BoardOption {
	return func(b *Board) { b.now = now }
}

// NewBoard returns an empty board.
func NewBoard(opts ...BoardOption) *Board {
	b := &Board{now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Board) Name() string { return "board" }

// Present adds a to the board.
func (b *Board) Present(_ context.Context, a Alert) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alerts = append(b.alerts, a)
	metrics.SetAlertsVisible(len(b.alerts))
	return nil
}

// List returns the visible alerts, oldest first.
func (b *Board) List() []Alert {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Alert(nil), b.alerts...)
}

// Dismiss removes the alert with the given ID.
func (b *Board) Dismiss(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, a := range b.alerts {
		if a.ID == id {
			b.alerts = append(b.alerts[:i], b.alerts[i+1:]...)
			metrics.SetAlertsVisible(len(b.alerts))
			metrics.RecordAlertAction("dismiss")
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrAlertNotFound, id)
}

// Click records a navigation to the inquiries list. The alert stays
// visible.
func (b *Board) Click(id string) (NavigationIntent, error) {
	b.mu.Lock()
	found := false
	for _, a := range b.alerts {
		if a.ID == id {
			found = true
			break
		}
	}
	if !found {
		b.mu.Unlock()
		return NavigationIntent{}, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}
	intent := NavigationIntent{AlertID: id, Target: InquiriesPath, At: b.now()}
	b.intents = append(b.intents, intent)
	if len(b.intents) > maxIntents {
		b.intents = b.intents[len(b.intents)-maxIntents:]
	}
	onNavigate := b.onNavigate
	b.mu.Unlock()

	metrics.RecordAlertAction("click")
	if onNavigate != nil {
		onNavigate(intent)
	}
	return intent, nil
}

// Intents returns the most recent navigation intents, oldest first.
func (b *Board) Intents() []NavigationIntent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]NavigationIntent(nil), b.intents...)
}
