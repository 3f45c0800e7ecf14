// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/inqwatch/internal/inquiry"
	xglog "github.com/ManuGH/inqwatch/internal/log"
	"github.com/ManuGH/inqwatch/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// DefaultCueTimeout bounds how long a single cue may run before its
	// player is cancelled.
	DefaultCueTimeout = 2 * time.Second
	// DefaultCueInterval is the minimum spacing of cues after the burst.
	DefaultCueInterval = 2 * time.Second
	// DefaultCueBurst is how many cues may play back to back.
	DefaultCueBurst = 3
)

// Sound cue outcomes, also metric labels.
const (
	CuePlayed    = "played"
	CueFailed    = "failed"
	CueTimeout   = "timeout"
	CueThrottled = "throttled"
)

// SinkOptions configures a Sink.
type SinkOptions struct {
	Player     Player
	Presenters []Presenter

	CueTimeout  time.Duration
	CueInterval time.Duration
	CueBurst    int

	Now    func() time.Time
	NewID  func() string
	Logger zerolog.Logger
}

// Sink raises an alert and plays a cue for every inquiry.
type Sink struct {
	player     Player
	presenters []Presenter
	cueTimeout time.Duration
	limiter    *rate.Limiter
	now        func() time.Time
	newID      func() string
	logger     zerolog.Logger

	cues sync.WaitGroup
}

// NewSink returns a sink. Without presenters alerts are only logged.
func NewSink(opts SinkOptions) *Sink {
	if opts.Player == nil {
		opts.Player = NoopPlayer{}
	}
	if opts.CueTimeout <= 0 {
		opts.CueTimeout = DefaultCueTimeout
	}
	if opts.CueInterval <= 0 {
		opts.CueInterval = DefaultCueInterval
	}
	if opts.CueBurst <= 0 {
		opts.CueBurst = DefaultCueBurst
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	logger := opts.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = xglog.WithComponent("notify")
	}
	if len(opts.Presenters) == 0 {
		opts.Presenters = []Presenter{NewLogPresenter(logger)}
	}

	return &Sink{
		player:     opts.Player,
		presenters: opts.Presenters,
		cueTimeout: opts.CueTimeout,
		limiter:    rate.NewLimiter(rate.Every(opts.CueInterval), opts.CueBurst),
		now:        opts.Now,
		newID:      opts.NewID,
		logger:     logger,
	}
}

// Notify raises a persistent alert on every presenter, then starts the cue
// without waiting for it. Cue problems are logged and never returned.
// Presenter failures are joined into the returned error; the alert is
// returned either way.
func (s *Sink) Notify(ctx context.Context, ev inquiry.Event) (Alert, error) {
	alert := newAlert(s.newID(), ev, s.now())
	var errs []error
	for _, p := range s.presenters {
		if err := p.Present(ctx, alert); err != nil {
			metrics.RecordNotification(p.Name(), "error")
			s.logger.Warn().
				Err(err).
				Str(xglog.FieldEvent, "notify.present_failed").
				Str("presenter", p.Name()).
				Str(xglog.FieldAlertID, alert.ID).
				Msg("presenter failed")
			errs = append(errs, fmt.Errorf("presenter %s: %w", p.Name(), err))
			continue
		}
		metrics.RecordNotification(p.Name(), "ok")
	}

	s.startCue(ctx, alert.ID)
	return alert, errors.Join(errs...)
}

// Drain waits for cues still playing, or until ctx is done.
func (s *Sink) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.cues.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// startCue runs the player in the background. The cue outlives the caller's
// cancellation; only the cue timeout stops it.
func (s *Sink) startCue(ctx context.Context, alertID string) {
	if !s.limiter.AllowN(s.now(), 1) {
		metrics.RecordSoundCue(CueThrottled)
		s.logger.Debug().Str(xglog.FieldEvent, "notify.cue_throttled").Msg("sound cue throttled")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cueTimeout)
	s.cues.Add(1)
	go func() {
		defer s.cues.Done()
		defer cancel()
		s.playCue(ctx, alertID)
	}()
}

func (s *Sink) playCue(ctx context.Context, alertID string) {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("notify: player panic: %v", r)
			}
		}()
		done <- s.player.Play(ctx)
	}()

	var err error
	result := CuePlayed
	select {
	case err = <-done:
		if err != nil {
			result = CueFailed
		}
	case <-ctx.Done():
		err = ctx.Err()
		result = CueTimeout
	}
	metrics.RecordSoundCue(result)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "notify.cue_failed").
			Str(xglog.FieldReason, result).
			Str(xglog.FieldAlertID, alertID).
			Msg("sound cue failed")
	}
}
