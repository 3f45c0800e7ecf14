// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"errors"
	"time"
)

// Retry reasons, also used as metric labels.
const (
	ReasonNoToken      = "no_token"
	ReasonUnauthorized = "unauthorized"
	ReasonTransport    = "transport"
)

// RetryPolicy maps a failure class to the delay before the next Connect.
// There is no attempt limit; the client retries until closed.
type RetryPolicy struct {
	NoToken      time.Duration
	Unauthorized time.Duration
	Transport    time.Duration
}

// DefaultRetryPolicy waits 5s without a token or after a 401, 3s otherwise.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		NoToken:      5 * time.Second,
		Unauthorized: 5 * time.Second,
		Transport:    3 * time.Second,
	}
}

// Delay classifies err and returns the wait and the reason label.
func (p RetryPolicy) Delay(err error) (time.Duration, string) {
	switch {
	case errors.Is(err, ErrNoToken):
		return p.NoToken, ReasonNoToken
	case IsUnauthorized(err):
		return p.Unauthorized, ReasonUnauthorized
	default:
		return p.Transport, ReasonTransport
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.NoToken <= 0 {
		p.NoToken = d.NoToken
	}
	if p.Unauthorized <= 0 {
		p.Unauthorized = d.Unauthorized
	}
	if p.Transport <= 0 {
		p.Transport = d.Transport
	}
	return p
}
