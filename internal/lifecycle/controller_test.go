// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package lifecycle

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/inqwatch/internal/bus"
	"github.com/ManuGH/inqwatch/internal/clock"
	"github.com/ManuGH/inqwatch/internal/inquiry"
	"github.com/ManuGH/inqwatch/internal/notify"
	"github.com/ManuGH/inqwatch/internal/stream"
	"github.com/ManuGH/inqwatch/internal/testutil"
	"github.com/ManuGH/inqwatch/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// orderLog records sink and bus calls in one sequence.
type orderLog struct {
	mu    sync.Mutex
	steps []string
}

func (o *orderLog) add(s string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.steps = append(o.steps, s)
}

func (o *orderLog) get() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.steps...)
}

type recordingSink struct{ log *orderLog }

func (s recordingSink) Notify(_ context.Context, ev inquiry.Event) (notify.Alert, error) {
	s.log.add("sink:" + ev.VehicleMake)
	return notify.Alert{Title: ev.Title()}, nil
}

type fixture struct {
	dialer *testutil.FakeDialer
	clock  *clock.Fake
	tokens *tokenBox
	steps  *orderLog
	bus    *bus.Bus[inquiry.Event]
}

type tokenBox struct {
	mu  sync.Mutex
	tok string
}

func (b *tokenBox) set(tok string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tok = tok
}

func (b *tokenBox) Token() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tok, b.tok != ""
}

func newFixture(tok string) *fixture {
	f := &fixture{
		dialer: testutil.NewFakeDialer(),
		clock:  clock.NewFake(time.Unix(1_700_000_000, 0)),
		tokens: &tokenBox{tok: tok},
		steps:  &orderLog{},
		bus:    bus.New[inquiry.Event]("lifecycle-test"),
	}
	f.bus.Subscribe(func(ev inquiry.Event) { f.steps.add("bus:" + ev.VehicleMake) })
	return f
}

func (f *fixture) controller() *Controller {
	return New(Config{
		Stream: stream.Options{Tokens: f.tokens, Dialer: f.dialer, Clock: f.clock},
		Sink:   recordingSink{log: f.steps},
		Bus:    f.bus,
	})
}

func waitState(t *testing.T, c *Controller, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return c.State() == want }, testutil.WaitFor, time.Millisecond,
		"controller never reached %s", want)
}

func TestController_MountReachesActive(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newFixture("tok")
	c := f.controller()
	assert.Equal(t, StateIdle, c.State())

	require.NoError(t, c.Mount())
	assert.Contains(t, []State{StateStarting, StateActive}, c.State())

	f.dialer.Next(t)
	waitState(t, c, StateActive)
	assert.Equal(t, stream.StateOpen, c.Status().Stream.State)

	c.Unmount()
	assert.Equal(t, StateStopped, c.State())
	assert.Equal(t, stream.StateClosed, c.Status().Stream.State)
}

func TestController_MountIsIdempotent(t *testing.T) {
	f := newFixture("tok")
	c := f.controller()
	defer c.Unmount()

	require.NoError(t, c.Mount())
	require.NoError(t, c.Mount())
	f.dialer.Next(t)
	waitState(t, c, StateActive)
	require.NoError(t, c.Mount())
	assert.Equal(t, 1, f.dialer.Calls(), "at most one connection per controller")
}

func TestController_SinkThenBusInTransportOrder(t *testing.T) {
	f := newFixture("tok")
	c := f.controller()
	defer c.Unmount()

	require.NoError(t, c.Mount())
	s := f.dialer.Next(t)
	s.SendInquiry(t, `{"vehicleMake":"A"}`)
	s.SendInquiry(t, `{"vehicleMake":"B"}`)

	require.Eventually(t, func() bool { return len(f.steps.get()) == 4 }, testutil.WaitFor, time.Millisecond)
	assert.Equal(t, []string{"sink:A", "bus:A", "sink:B", "bus:B"}, f.steps.get())
}

func TestController_DropsDeliveryAfterUnmount(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newFixture("tok")
	c := f.controller()

	require.NoError(t, c.Mount())
	s := f.dialer.Next(t)
	s.SendInquiry(t, `{"vehicleMake":"A"}`)
	require.Eventually(t, func() bool { return len(f.steps.get()) == 2 }, testutil.WaitFor, time.Millisecond)

	c.Unmount()

	// A frame that cleared the client's epoch check just before Close
	// still reaches the handler.
	c.handle(inquiry.Event{VehicleMake: "late", Epoch: 1})

	assert.Equal(t, []string{"sink:A", "bus:A"}, f.steps.get(), "no alert or publish after unmount")
}

func TestController_ActiveFallsBackToStartingOnError(t *testing.T) {
	f := newFixture("tok")
	c := f.controller()
	defer c.Unmount()

	require.NoError(t, c.Mount())
	s := f.dialer.Next(t)
	waitState(t, c, StateActive)

	s.End()
	waitState(t, c, StateStarting)

	f.clock.Advance(3 * time.Second)
	f.dialer.Next(t)
	waitState(t, c, StateActive)
}

func TestController_UnmountWithPendingRetryTimer(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newFixture("tok")
	f.dialer.FailNext(&stream.StatusError{Code: http.StatusUnauthorized})
	c := f.controller()

	require.NoError(t, c.Mount())
	require.Eventually(t, func() bool { return c.Status().Stream.State == stream.StateRetrying },
		testutil.WaitFor, time.Millisecond)
	require.Equal(t, 1, f.clock.Pending())

	c.Unmount()
	assert.Zero(t, f.clock.Pending(), "retry timer cancelled")

	f.clock.Advance(10 * time.Second)
	assert.Equal(t, 1, f.dialer.Calls(), "no connection after unmount")
	assert.Equal(t, uint64(1), c.Status().Stream.Epoch)
}

func TestController_UnmountWithoutToken(t *testing.T) {
	f := newFixture("")
	c := f.controller()

	require.NoError(t, c.Mount())
	assert.Equal(t, StateStarting, c.State())
	assert.Zero(t, f.dialer.Calls())

	c.Unmount()
	f.clock.Advance(time.Minute)
	assert.Zero(t, f.dialer.Calls())
}

func TestController_StoppedRejectsMount(t *testing.T) {
	f := newFixture("tok")
	c := f.controller()

	c.Unmount()
	c.Unmount()
	assert.ErrorIs(t, c.Mount(), ErrStopped)
	assert.Zero(t, f.dialer.Calls())
}

func TestController_MountFailsWithoutDialer(t *testing.T) {
	c := New(Config{Stream: stream.Options{Tokens: token.Static("tok")}})
	err := c.Mount()
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrStopped))
	assert.Equal(t, StateIdle, c.State())
}

func TestController_RemountStartsFreshEpoch(t *testing.T) {
	f := newFixture("tok")

	first := f.controller()
	require.NoError(t, first.Mount())
	f.dialer.Next(t).End()
	waitState(t, first, StateStarting)
	f.clock.Advance(3 * time.Second)
	f.dialer.Next(t)
	waitState(t, first, StateActive)
	require.Equal(t, uint64(2), first.Status().Stream.Epoch)
	first.Unmount()

	second := f.controller()
	defer second.Unmount()
	require.NoError(t, second.Mount())
	f.dialer.Next(t)
	waitState(t, second, StateActive)
	assert.Equal(t, uint64(1), second.Status().Stream.Epoch)
}
