// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package lifecycle

import (
	"errors"
	"sync"
)

// ErrHostClosed is returned by Host operations after Close.
var ErrHostClosed = errors.New("lifecycle: host closed")

// Host keeps the current Controller and replaces it on Remount.
type Host struct {
	build func() *Controller

	mu      sync.Mutex
	current *Controller
	closed  bool
}

// NewHost returns a host that builds controllers with build.
func NewHost(build func() *Controller) *Host {
	return &Host{build: build}
}

// Start mounts the first controller. Calling it again is a no-op.
func (h *Host) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHostClosed
	}
	if h.current != nil {
		return nil
	}
	h.current = h.build()
	return h.current.Mount()
}

// Remount unmounts the current controller before mounting a fresh one, so
// two connections never overlap.
func (h *Host) Remount() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHostClosed
	}
	if h.current != nil {
		h.current.Unmount()
	}
	h.current = h.build()
	return h.current.Mount()
}

// Status reports the current controller, or Idle before Start.
func (h *Host) Status() Status {
	h.mu.Lock()
	cur := h.current
	h.mu.Unlock()
	if cur == nil {
		return Status{State: StateIdle}
	}
	return cur.Status()
}

// Close unmounts the current controller. It is idempotent.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	if h.current != nil {
		h.current.Unmount()
	}
}
