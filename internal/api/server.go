// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the daemon's admin and ops HTTP surface.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/ManuGH/inqwatch/internal/api/middleware"
	"github.com/ManuGH/inqwatch/internal/bus"
	"github.com/ManuGH/inqwatch/internal/health"
	"github.com/ManuGH/inqwatch/internal/inquiry"
	"github.com/ManuGH/inqwatch/internal/lifecycle"
	"github.com/ManuGH/inqwatch/internal/notify"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Scope is the running notification scope.
type Scope interface {
	Status() lifecycle.Status
	Remount() error
}

// AlertBoard exposes visible alerts and user actions on them.
type AlertBoard interface {
	List() []notify.Alert
	Dismiss(id string) error
	Click(id string) (notify.NavigationIntent, error)
}

// EventSource hands out channel subscriptions to decoded inquiries.
type EventSource interface {
	SubscribeChan(buffer int) *bus.ChanSubscription[inquiry.Event]
	Len() int
}

var (
	ErrMissingHealth = errors.New("api: health manager is required")
	ErrMissingScope  = errors.New("api: scope is required")
	ErrMissingAlerts = errors.New("api: alert board is required")
)

// Deps are the collaborators of the admin API.
type Deps struct {
	Health *health.Manager
	Scope  Scope
	Alerts AlertBoard
	// Events enables the local event relay when set.
	Events EventSource

	RateLimit      int
	TracingService string
	// RelayKeepAlive is the comment interval on relay streams.
	RelayKeepAlive time.Duration
}

// Validate checks the required collaborators.
func (d Deps) Validate() error {
	switch {
	case d.Health == nil:
		return ErrMissingHealth
	case d.Scope == nil:
		return ErrMissingScope
	case d.Alerts == nil:
		return ErrMissingAlerts
	}
	return nil
}

// Server routes admin requests.
type Server struct {
	deps   Deps
	router chi.Router
}

// New builds the router.
func New(deps Deps) (*Server, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	if deps.RelayKeepAlive <= 0 {
		deps.RelayKeepAlive = 30 * time.Second
	}
	s := &Server{deps: deps}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	// Probes and scrapes sit outside the rate limit.
	r.Group(func(r chi.Router) {
		middleware.ApplyStack(r, middleware.StackConfig{})
		r.Get("/healthz", s.deps.Health.ServeHealth)
		r.Get("/readyz", s.deps.Health.ServeReady)
		r.Handle("/metrics", promhttp.Handler())
	})

	r.Route("/api/v1", func(r chi.Router) {
		middleware.ApplyStack(r, middleware.StackConfig{
			EnableMetrics:  true,
			TracingService: s.deps.TracingService,
			EnableLogging:  true,
			RateLimit:      s.deps.RateLimit,
		})
		r.Get("/stream", s.handleStreamStatus)
		r.Post("/stream/remount", s.handleRemount)
		r.Get("/alerts", s.handleListAlerts)
		r.Post("/alerts/{id}/dismiss", s.handleDismissAlert)
		r.Post("/alerts/{id}/click", s.handleClickAlert)
		if s.deps.Events != nil {
			r.Get("/events", s.handleEventRelay)
		}
	})
	return r
}
