// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/inqwatch/internal/lifecycle"
	"github.com/ManuGH/inqwatch/internal/token"
)

// StreamChecker is healthy only while the notification scope is Active.
type StreamChecker struct {
	status func() lifecycle.Status
}

// NewStreamChecker reads the scope status through status.
func NewStreamChecker(status func() lifecycle.Status) *StreamChecker {
	return &StreamChecker{status: status}
}

func (c *StreamChecker) Name() string { return "stream" }

func (c *StreamChecker) Check(context.Context) CheckResult {
	st := c.status()
	if st.State == lifecycle.StateActive {
		return CheckResult{
			Status:  StatusHealthy,
			Message: fmt.Sprintf("stream open (epoch %d)", st.Stream.Epoch),
		}
	}
	res := CheckResult{
		Status:  StatusUnhealthy,
		Message: fmt.Sprintf("scope %s, stream %s", st.State, st.Stream.State),
		Error:   st.Stream.LastError,
	}
	if !st.Stream.NextRetryAt.IsZero() {
		res.Message += fmt.Sprintf(", retry in %s", time.Until(st.Stream.NextRetryAt).Round(time.Second))
	}
	return res
}

// TokenChecker reports degraded while no usable token is available. The
// stream keeps retrying, so this never fails readiness on its own.
type TokenChecker struct {
	provider token.Provider
}

// NewTokenChecker checks p.
func NewTokenChecker(p token.Provider) *TokenChecker {
	return &TokenChecker{provider: p}
}

func (c *TokenChecker) Name() string { return "token" }

func (c *TokenChecker) Check(context.Context) CheckResult {
	if _, ok := c.provider.Token(); !ok {
		return CheckResult{Status: StatusDegraded, Message: "no usable token (missing or expired)"}
	}
	return CheckResult{Status: StatusHealthy, Message: "token available"}
}

// PingChecker wraps a reachability probe such as a Redis PING. Failures
// are degraded: consumers keep their last known state.
type PingChecker struct {
	name    string
	ping    func(ctx context.Context) error
	timeout time.Duration
}

// NewPingChecker returns a checker named name.
func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping, timeout: 2 * time.Second}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusDegraded, Error: err.Error(), Message: "unreachable"}
	}
	return CheckResult{Status: StatusHealthy, Message: "reachable"}
}
