// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package lifecycle ties one stream client to a notification scope.
//
// A Controller is single use: Idle, then Starting once mounted, Active while
// the stream is open, and Stopped for good after Unmount. Remounting means
// building a new Controller, which brings a new client, a new epoch counter
// and new timers.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ManuGH/inqwatch/internal/inquiry"
	xglog "github.com/ManuGH/inqwatch/internal/log"
	"github.com/ManuGH/inqwatch/internal/metrics"
	"github.com/ManuGH/inqwatch/internal/notify"
	"github.com/ManuGH/inqwatch/internal/stream"
	"github.com/rs/zerolog"
)

// ErrStopped is returned by Mount on an unmounted controller.
var ErrStopped = errors.New("lifecycle: controller stopped")

// State of a Controller.
type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateActive   State = "active"
	StateStopped  State = "stopped"
)

// Notifier raises the user-facing notification for an event.
type Notifier interface {
	Notify(ctx context.Context, ev inquiry.Event) (notify.Alert, error)
}

// Publisher fans an event out to in-process consumers.
type Publisher interface {
	Publish(ev inquiry.Event)
}

// Config carries everything a Controller needs to build its client.
type Config struct {
	Stream stream.Options
	Sink   Notifier
	Bus    Publisher
	Logger zerolog.Logger
}

// Status is a point-in-time view of a Controller.
type Status struct {
	State  State           `json:"state"`
	Stream stream.Snapshot `json:"stream"`
}

// Controller owns exactly one stream client for its lifetime.
type Controller struct {
	cfg    Config
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	state  State
	client *stream.Client
}

// New returns an idle controller.
func New(cfg Config) *Controller {
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = xglog.WithComponent("lifecycle")
	}
	ctx, cancel := context.WithCancel(context.Background())
	metrics.SetControllerState(string(StateIdle))
	return &Controller{
		cfg:    cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		state:  StateIdle,
	}
}

// Mount creates the client and starts connecting. Mounting an already
// mounted controller does nothing.
func (c *Controller) Mount() error {
	c.mu.Lock()
	switch c.state {
	case StateStopped:
		c.mu.Unlock()
		return ErrStopped
	case StateStarting, StateActive:
		c.mu.Unlock()
		return nil
	}

	opts := c.cfg.Stream
	opts.Handler = c.handle
	opts.OnState = c.observe
	client, err := stream.New(opts)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("lifecycle: build client: %w", err)
	}
	c.client = client
	c.setStateLocked(StateStarting)
	c.mu.Unlock()

	metrics.IncControllerMounts()
	c.logger.Info().Str(xglog.FieldEvent, "lifecycle.mounted").Msg("notification scope mounted")

	// The client calls observe with its own lock held, so Connect runs
	// without ours.
	if err := client.Connect(); err != nil && !errors.Is(err, stream.ErrClosed) {
		return fmt.Errorf("lifecycle: connect: %w", err)
	}
	return nil
}

// Unmount closes the client unconditionally and waits for its goroutines.
// It must not be called from an event handler.
func (c *Controller) Unmount() {
	c.mu.Lock()
	if c.state == StateStopped {
		c.mu.Unlock()
		return
	}
	c.setStateLocked(StateStopped)
	client := c.client
	c.mu.Unlock()

	c.cancel()
	if client != nil {
		client.Close()
		client.Wait()
	}
	c.logger.Info().Str(xglog.FieldEvent, "lifecycle.unmounted").Msg("notification scope unmounted")
}

// State returns the controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns the controller and client state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	st := Status{State: c.state}
	client := c.client
	c.mu.Unlock()
	if client != nil {
		st.Stream = client.Snapshot()
	}
	return st
}

// handle runs on the client's reader goroutine: sink first, then bus, so
// both see the same order. Events that arrive after Unmount are dropped.
func (c *Controller) handle(ev inquiry.Event) {
	c.mu.Lock()
	stopped := c.state == StateStopped
	c.mu.Unlock()
	if stopped {
		c.logger.Debug().
			Str(xglog.FieldEvent, "lifecycle.event_dropped").
			Uint64(xglog.FieldEpoch, ev.Epoch).
			Msg("event arrived after unmount")
		return
	}

	if c.cfg.Sink != nil {
		if _, err := c.cfg.Sink.Notify(c.ctx, ev); err != nil {
			c.logger.Warn().
				Err(err).
				Str(xglog.FieldEvent, "lifecycle.notify_failed").
				Uint64(xglog.FieldEpoch, ev.Epoch).
				Msg("notification incomplete")
		}
	}
	if c.cfg.Bus != nil {
		c.cfg.Bus.Publish(ev)
	}
}

func (c *Controller) observe(_ uint64, s stream.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch s {
	case stream.StateOpen:
		if c.state == StateStarting {
			c.setStateLocked(StateActive)
		}
	case stream.StateConnecting, stream.StateRetrying:
		if c.state == StateActive {
			c.setStateLocked(StateStarting)
		}
	}
}

func (c *Controller) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.logger.Debug().
		Str(xglog.FieldOldState, string(c.state)).
		Str(xglog.FieldNewState, string(s)).
		Msg("controller state changed")
	c.state = s
	metrics.SetControllerState(string(s))
}
