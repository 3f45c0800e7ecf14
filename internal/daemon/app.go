// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rs/zerolog"
)

// Scope is the notification scope owned by the daemon.
type Scope interface {
	Start() error
	Remount() error
	Close()
}

// Worker is a named background loop that runs until its context ends.
type Worker struct {
	Name string
	Run  func(ctx context.Context) error
}

// App owns the long-lived runtime (token refreshers, the notification scope,
// the reload signal) and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	scope        Scope
	workers      []Worker
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator.
func NewApp(logger zerolog.Logger, manager Manager, scope Scope, workers ...Worker) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		scope:        scope,
		workers:      workers,
		reloadSignal: syscall.SIGHUP,
	}
}

// Manager returns the server manager.
func (a *App) Manager() Manager { return a.manager }

// Run mounts the notification scope, starts the workers and blocks until ctx
// is cancelled or a fatal error occurs. The scope itself is closed by the
// manager's shutdown hooks.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}
	if a.scope == nil {
		return ErrMissingScope
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, w := range a.workers {
		g.Go(func() error {
			a.logger.Debug().Str("worker", w.Name).Msg("worker started")
			if err := w.Run(ctx); err != nil {
				return fmt.Errorf("worker %s: %w", w.Name, err)
			}
			return nil
		})
	}

	// SIGHUP replaces the notification scope with a fresh connection.
	if a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str("event", "scope.remount_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, remounting notification scope")

					if err := a.scope.Remount(); err != nil {
						a.logger.Warn().
							Err(err).
							Str("event", "scope.remount_failed").
							Msg("remount failed")
					}
				}
			}
		})
	}

	// Main server lifecycle. A failed mount cancels ctx, which stops the
	// manager and runs the shutdown hooks.
	g.Go(func() error {
		return a.manager.Start(ctx)
	})
	g.Go(func() error {
		if err := a.scope.Start(); err != nil {
			return fmt.Errorf("mount notification scope: %w", err)
		}
		return nil
	})

	return g.Wait()
}
