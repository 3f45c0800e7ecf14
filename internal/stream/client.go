// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package stream keeps one authenticated inquiry event stream open across
// token rotation, network drops and server restarts.
//
// Delivery is at-most-once and best effort: events the server emits while
// the client is between connections are not replayed.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ManuGH/inqwatch/internal/clock"
	"github.com/ManuGH/inqwatch/internal/inquiry"
	xglog "github.com/ManuGH/inqwatch/internal/log"
	"github.com/ManuGH/inqwatch/internal/metrics"
	"github.com/ManuGH/inqwatch/internal/sse"
	"github.com/ManuGH/inqwatch/internal/telemetry"
	"github.com/ManuGH/inqwatch/internal/token"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultHeartbeatTimeout is the longest silence tolerated on an open stream.
const DefaultHeartbeatTimeout = 120 * time.Second

// State of the client's current connection.
type State string

const (
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateRetrying   State = "retrying"
	StateClosed     State = "closed"
)

// Connection is one attempt to hold the stream open. Its token is fixed for
// the attempt's lifetime.
type Connection struct {
	ID         string
	Epoch      uint64
	Token      string
	RetryCount int

	state  State
	opened bool
	cancel context.CancelCauseFunc
}

// Handler receives decoded inquiry events in transport order.
type Handler func(inquiry.Event)

// StateObserver is told about every state transition. It runs with the
// client's lock held and must not call back into the client.
type StateObserver func(epoch uint64, state State)

// Options configures a Client.
type Options struct {
	Tokens  token.Provider
	Dialer  Dialer
	Handler Handler
	OnState StateObserver

	Retry            RetryPolicy
	HeartbeatTimeout time.Duration
	Clock            clock.Clock
	Logger           zerolog.Logger
}

// Snapshot is a point-in-time view of the client for health and admin output.
type Snapshot struct {
	State        State     `json:"state"`
	Epoch        uint64    `json:"epoch"`
	ConnectionID string    `json:"connection_id,omitempty"`
	RetryCount   int       `json:"retry_count"`
	LastError    string    `json:"last_error,omitempty"`
	OpenedAt     time.Time `json:"opened_at,omitzero"`
	LastFrameAt  time.Time `json:"last_frame_at,omitzero"`
	NextRetryAt  time.Time `json:"next_retry_at,omitzero"`
	LastEventID  string    `json:"last_event_id,omitempty"`
}

// Client is the inquiry event stream client.
type Client struct {
	tokens    token.Provider
	dialer    Dialer
	handler   Handler
	onState   StateObserver
	retry     RetryPolicy
	heartbeat time.Duration
	clock     clock.Clock
	logger    zerolog.Logger
	tracer    trace.Tracer

	mu          sync.Mutex
	state       State
	conn        *Connection
	epoch       uint64
	retryCount  int
	retryTimer  clock.Timer
	retryGen    uint64
	closed      bool
	lastErr     error
	openedAt    time.Time
	lastFrameAt time.Time
	nextRetryAt time.Time
	lastEventID string

	wg sync.WaitGroup
}

// New validates opts and returns an idle client. Nothing happens until Connect.
func New(opts Options) (*Client, error) {
	if opts.Tokens == nil {
		return nil, errors.New("stream: token provider is required")
	}
	if opts.Dialer == nil {
		return nil, errors.New("stream: dialer is required")
	}
	if opts.HeartbeatTimeout <= 0 {
		opts.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	logger := opts.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = xglog.WithComponent("stream")
	}

	return &Client{
		tokens:    opts.Tokens,
		dialer:    opts.Dialer,
		handler:   opts.Handler,
		onState:   opts.OnState,
		retry:     opts.Retry.withDefaults(),
		heartbeat: opts.HeartbeatTimeout,
		clock:     opts.Clock,
		logger:    logger,
		tracer:    telemetry.Tracer("inqwatch/stream"),
		state:     StateClosed,
	}, nil
}

// Connect starts a connection attempt and returns without waiting for the
// network. It is a no-op while a connection is connecting or open. Without
// a token no request is made and a retry is scheduled.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Client) connectLocked() error {
	if c.closed {
		return ErrClosed
	}
	if c.conn != nil {
		return nil
	}
	c.stopRetryLocked()

	tok, ok := c.tokens.Token()
	if !ok {
		metrics.RecordConnectAttempt(metrics.OutcomeNoToken)
		c.lastErr = ErrNoToken
		c.logger.Debug().
			Str(xglog.FieldEvent, "stream.no_token").
			Msg("no token available, deferring connection")
		c.scheduleRetryLocked(ErrNoToken)
		return nil
	}

	c.epoch++
	conn := &Connection{
		ID:         uuid.NewString(),
		Epoch:      c.epoch,
		Token:      tok,
		RetryCount: c.retryCount,
		state:      StateConnecting,
	}
	ctx, cancel := context.WithCancelCause(context.Background())
	conn.cancel = cancel
	c.conn = conn
	metrics.SetStreamEpoch(conn.Epoch)
	c.setStateLocked(conn.Epoch, StateConnecting)

	c.logger.Debug().
		Str(xglog.FieldEvent, "stream.connecting").
		Uint64(xglog.FieldEpoch, conn.Epoch).
		Str(xglog.FieldConnectionID, conn.ID).
		Int(xglog.FieldRetryCount, conn.RetryCount).
		Msg("opening inquiry stream")

	c.wg.Add(1)
	go c.run(ctx, conn)
	return nil
}

// Close tears down the active connection and cancels any pending retry.
// It is idempotent; a closed client never connects again. A frame that
// passed its epoch check before Close may still reach the Handler once;
// Wait returns only after that delivery is done.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stopRetryLocked()
	epoch := c.epoch
	if c.conn != nil {
		c.conn.state = StateClosed
		c.conn.cancel(ErrClosed)
		c.conn = nil
	}
	c.setStateLocked(epoch, StateClosed)
	c.logger.Info().
		Str(xglog.FieldEvent, "stream.closed").
		Uint64(xglog.FieldEpoch, epoch).
		Msg("inquiry stream closed")
}

// Wait blocks until every connection goroutine has exited. Call it after
// Close, never from inside a Handler.
func (c *Client) Wait() {
	c.wg.Wait()
}

// Snapshot returns the client's current state.
func (c *Client) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		State:       c.state,
		Epoch:       c.epoch,
		RetryCount:  c.retryCount,
		OpenedAt:    c.openedAt,
		LastFrameAt: c.lastFrameAt,
		NextRetryAt: c.nextRetryAt,
		LastEventID: c.lastEventID,
	}
	if c.conn != nil {
		s.ConnectionID = c.conn.ID
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}

func (c *Client) run(ctx context.Context, conn *Connection) {
	defer c.wg.Done()

	spanCtx, span := c.tracer.Start(ctx, "stream.connect",
		trace.WithAttributes(telemetry.StreamAttributes(conn.Epoch, conn.ID, conn.RetryCount)...))

	body, err := c.dialer.Dial(spanCtx, conn.Token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		span.End()
		c.handleError(conn, err)
		return
	}
	defer func() { _ = body.Close() }()

	if !c.markOpen(conn) {
		span.SetAttributes(attribute.String(telemetry.StreamOutcomeKey, "superseded"))
		span.End()
		return
	}
	span.SetAttributes(attribute.String(telemetry.StreamOutcomeKey, "open"))
	span.End()

	watchdog := c.clock.AfterFunc(c.heartbeat, func() {
		conn.cancel(ErrHeartbeatTimeout)
	})
	defer watchdog.Stop()

	reader := sse.NewReader(&activityReader{
		r:     body,
		touch: func() { watchdog.Reset(c.heartbeat) },
	})

	for {
		frame, err := reader.Next()
		if err != nil {
			c.handleError(conn, readError(ctx, err))
			return
		}
		c.handleFrame(conn, frame)
	}
}

// readError prefers the cancellation cause (heartbeat, close) over the
// transport error it produced.
func readError(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); cause != nil {
		return cause
	}
	if errors.Is(err, io.EOF) {
		return ErrStreamEnded
	}
	return fmt.Errorf("stream: read: %w", err)
}

func (c *Client) markOpen(conn *Connection) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.conn != conn {
		return false
	}
	conn.state = StateOpen
	conn.opened = true
	c.retryCount = 0
	c.lastErr = nil
	c.openedAt = c.clock.Now()
	c.lastFrameAt = time.Time{}
	metrics.RecordConnectAttempt(metrics.OutcomeOpen)
	c.setStateLocked(conn.Epoch, StateOpen)

	c.logger.Info().
		Str(xglog.FieldEvent, "stream.open").
		Uint64(xglog.FieldEpoch, conn.Epoch).
		Str(xglog.FieldConnectionID, conn.ID).
		Msg("inquiry stream open")
	return true
}

// handleFrame is called for every frame in transport order.
func (c *Client) handleFrame(conn *Connection, frame sse.Frame) {
	c.mu.Lock()
	if c.closed || c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.lastFrameAt = c.clock.Now()
	if frame.ID != "" {
		c.lastEventID = frame.ID
	}
	now := c.lastFrameAt
	c.mu.Unlock()

	switch {
	case !frame.Named():
		metrics.RecordFrame(metrics.FrameKeepAlive)
		return

	case frame.Event == inquiry.EventType:
		metrics.RecordFrame(metrics.FrameInquiry)
		ev, err := inquiry.Decode([]byte(frame.Data))
		if err != nil {
			metrics.RecordDecodeFailure()
			c.logger.Warn().
				Err(err).
				Str(xglog.FieldEvent, "stream.decode_failed").
				Uint64(xglog.FieldEpoch, conn.Epoch).
				Str(xglog.FieldEventID, frame.ID).
				Int("payload_bytes", len(frame.Data)).
				Msg("dropping malformed inquiry frame")
			return
		}
		ev.Epoch = conn.Epoch
		ev.FrameID = frame.ID
		ev.ReceivedAt = now
		c.deliver(conn, ev)

	default:
		metrics.RecordFrame(metrics.FrameOther)
		c.logger.Debug().
			Str(xglog.FieldEvent, "stream.frame_ignored").
			Str(xglog.FieldFrameType, frame.Event).
			Msg("ignoring unknown frame type")
	}
}

func (c *Client) deliver(conn *Connection, ev inquiry.Event) {
	if c.handler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().
				Interface("panic", r).
				Str(xglog.FieldEvent, "stream.handler_panic").
				Uint64(xglog.FieldEpoch, conn.Epoch).
				Msg("inquiry handler panicked")
		}
	}()
	c.handler(ev)
}

// handleError closes the failed connection and schedules the next attempt.
// Errors from superseded or closed connections are ignored.
func (c *Client) handleError(conn *Connection, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.conn != conn {
		return
	}

	conn.state = StateClosed
	conn.cancel(err)
	c.conn = nil
	c.lastErr = err
	if !conn.opened {
		metrics.RecordConnectAttempt(attemptOutcome(err))
	}
	c.retryCount++

	ev := c.logger.Warn()
	if errors.Is(err, ErrStreamEnded) {
		ev = c.logger.Info()
	}
	ev.Err(err).
		Str(xglog.FieldEvent, "stream.error").
		Uint64(xglog.FieldEpoch, conn.Epoch).
		Str(xglog.FieldConnectionID, conn.ID).
		Bool("was_open", conn.opened).
		Int(xglog.FieldRetryCount, c.retryCount).
		Msg("inquiry stream connection lost")

	c.scheduleRetryLocked(err)
}

func attemptOutcome(err error) string {
	var se *StatusError
	switch {
	case IsUnauthorized(err):
		return metrics.OutcomeUnauthorized
	case errors.As(err, &se):
		return metrics.OutcomeHTTPError
	default:
		return metrics.OutcomeTransportError
	}
}

// scheduleRetryLocked owns the single retry timer. A stale timer callback is
// recognised by its generation and does nothing.
func (c *Client) scheduleRetryLocked(cause error) {
	c.stopRetryLocked()
	delay, reason := c.retry.Delay(cause)

	c.retryGen++
	gen := c.retryGen
	c.nextRetryAt = c.clock.Now().Add(delay)
	c.retryTimer = c.clock.AfterFunc(delay, func() { c.fireRetry(gen) })
	metrics.RecordRetryScheduled(reason)
	c.setStateLocked(c.epoch, StateRetrying)

	c.logger.Info().
		Str(xglog.FieldEvent, "stream.retry_scheduled").
		Str(xglog.FieldReason, reason).
		Dur(xglog.FieldDelay, delay).
		Int(xglog.FieldRetryCount, c.retryCount).
		Msg("reconnect scheduled")
}

func (c *Client) stopRetryLocked() {
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	c.retryGen++
	c.nextRetryAt = time.Time{}
}

func (c *Client) fireRetry(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.retryGen {
		return
	}
	c.retryTimer = nil
	c.nextRetryAt = time.Time{}
	if err := c.connectLocked(); err != nil {
		c.logger.Debug().Err(err).Str(xglog.FieldEvent, "stream.retry_skipped").Msg("retry skipped")
	}
}

func (c *Client) setStateLocked(epoch uint64, s State) {
	if c.state == s {
		return
	}
	old := c.state
	c.state = s
	metrics.SetStreamState(string(s))
	c.logger.Debug().
		Str(xglog.FieldOldState, string(old)).
		Str(xglog.FieldNewState, string(s)).
		Uint64(xglog.FieldEpoch, epoch).
		Msg("stream state changed")
	if c.onState != nil {
		c.onState(epoch, s)
	}
}

// activityReader reports every successful read so the heartbeat watchdog
// counts comments and partial frames as liveness.
type activityReader struct {
	r     io.Reader
	touch func()
}

func (a *activityReader) Read(p []byte) (int, error) {
	n, err := a.r.Read(p)
	if n > 0 {
		a.touch()
	}
	return n, err
}
