// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package clock abstracts wall time and scheduled callbacks so retry and
// heartbeat timers can be driven deterministically in tests.
package clock

import "time"

// Timer is a scheduled callback that can be cancelled or rescheduled.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the call
	// stopped the timer, false if it already fired or was stopped.
	Stop() bool
	// Reset reschedules the callback to fire after d.
	Reset(d time.Duration) bool
}

// Clock is the time source used by stream and notification components.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is the process wall clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
