// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/inqwatch/internal/bus"
	"github.com/ManuGH/inqwatch/internal/health"
	"github.com/ManuGH/inqwatch/internal/inquiry"
	"github.com/ManuGH/inqwatch/internal/lifecycle"
	"github.com/ManuGH/inqwatch/internal/notify"
	"github.com/ManuGH/inqwatch/internal/sse"
	"github.com/ManuGH/inqwatch/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScope struct {
	mu        sync.Mutex
	status    lifecycle.Status
	remounts  int
	remountFn func() error
}

func (f *fakeScope) Status() lifecycle.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeScope) Remount() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remounts++
	if f.remountFn != nil {
		return f.remountFn()
	}
	return nil
}

func newTestServer(t *testing.T, scope *fakeScope, board *notify.Board, events EventSource) http.Handler {
	t.Helper()
	hm := health.NewManager("test")
	hm.RegisterChecker(health.NewStreamChecker(scope.Status))
	s, err := New(Deps{Health: hm, Scope: scope, Alerts: board, Events: events, RelayKeepAlive: 20 * time.Millisecond})
	require.NoError(t, err)
	return s.Handler()
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestNew_ValidatesDeps(t *testing.T) {
	_, err := New(Deps{})
	assert.ErrorIs(t, err, ErrMissingHealth)
	_, err = New(Deps{Health: health.NewManager("x")})
	assert.ErrorIs(t, err, ErrMissingScope)
	_, err = New(Deps{Health: health.NewManager("x"), Scope: &fakeScope{}})
	assert.ErrorIs(t, err, ErrMissingAlerts)
}

func TestReadyz_FollowsScopeState(t *testing.T) {
	scope := &fakeScope{status: lifecycle.Status{State: lifecycle.StateStarting}}
	h := newTestServer(t, scope, notify.NewBoard(), nil)

	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/readyz").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz").Code)

	scope.mu.Lock()
	scope.status = lifecycle.Status{State: lifecycle.StateActive, Stream: stream.Snapshot{State: stream.StateOpen, Epoch: 1}}
	scope.mu.Unlock()
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/readyz").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, &fakeScope{}, notify.NewBoard(), nil)
	rec := do(t, h, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestStreamStatus(t *testing.T) {
	scope := &fakeScope{status: lifecycle.Status{
		State:  lifecycle.StateActive,
		Stream: stream.Snapshot{State: stream.StateOpen, Epoch: 3, ConnectionID: "c-1"},
	}}
	h := newTestServer(t, scope, notify.NewBoard(), nil)

	rec := do(t, h, http.MethodGet, "/api/v1/stream")
	require.Equal(t, http.StatusOK, rec.Code)

	var got lifecycle.Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, lifecycle.StateActive, got.State)
	assert.Equal(t, uint64(3), got.Stream.Epoch)
	assert.Equal(t, "c-1", got.Stream.ConnectionID)
}

func TestRemount(t *testing.T) {
	scope := &fakeScope{}
	h := newTestServer(t, scope, notify.NewBoard(), nil)

	assert.Equal(t, http.StatusAccepted, do(t, h, http.MethodPost, "/api/v1/stream/remount").Code)
	assert.Equal(t, 1, scope.remounts)

	scope.remountFn = func() error { return lifecycle.ErrHostClosed }
	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/api/v1/stream/remount").Code)

	scope.remountFn = func() error { return errors.New("boom") }
	rec := do(t, h, http.MethodPost, "/api/v1/stream/remount")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/api/v1/stream/remount").Code)
}

func TestAlerts_ListDismissClick(t *testing.T) {
	board := notify.NewBoard()
	ctx := context.Background()
	require.NoError(t, board.Present(ctx, notify.Alert{ID: "a1", Title: "New Inquiry from Jane Doe", Persistent: true}))
	require.NoError(t, board.Present(ctx, notify.Alert{ID: "a2", Title: "New Inquiry from John Roe", Persistent: true}))
	h := newTestServer(t, &fakeScope{}, board, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/alerts")
	require.Equal(t, http.StatusOK, rec.Code)
	var list alertsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, "a1", list.Alerts[0].ID)

	rec = do(t, h, http.MethodPost, "/api/v1/alerts/a2/click")
	require.Equal(t, http.StatusOK, rec.Code)
	var intent notify.NavigationIntent
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&intent))
	assert.Equal(t, "/inquiries", intent.Target)
	assert.Equal(t, "a2", intent.AlertID)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodPost, "/api/v1/alerts/a1/dismiss").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/api/v1/alerts/a1/dismiss").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/api/v1/alerts/zzz/click").Code)
	assert.Len(t, board.List(), 1)
}

func TestAlerts_EmptyListIsArray(t *testing.T) {
	h := newTestServer(t, &fakeScope{}, notify.NewBoard(), nil)
	rec := do(t, h, http.MethodGet, "/api/v1/alerts")
	assert.JSONEq(t, `{"alerts":[],"count":0}`, rec.Body.String())
}

func TestEventRelay_StreamsPublishedInquiries(t *testing.T) {
	b := bus.New[inquiry.Event]("api-relay-test")
	srv := httptest.NewServer(newTestServer(t, &fakeScope{}, notify.NewBoard(), b))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream"))

	require.Eventually(t, func() bool { return b.Len() == 1 }, 2*time.Second, time.Millisecond)
	b.Publish(inquiry.Event{FirstName: "Jane", LastName: "Doe", VehicleMake: "Honda", Epoch: 2, FrameID: "9"})

	r := sse.NewReader(bufio.NewReader(resp.Body))
	frame, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, inquiry.EventType, frame.Event)
	assert.Equal(t, "9", frame.ID)

	var ev relayEvent
	require.NoError(t, json.Unmarshal([]byte(frame.Data), &ev))
	assert.Equal(t, "New Inquiry from Jane Doe", ev.Title)
	assert.Equal(t, uint64(2), ev.Epoch)

	cancel()
	require.Eventually(t, func() bool { return b.Len() == 0 }, 2*time.Second, time.Millisecond, "subscription released")
}

func TestEventRelay_DisabledWithoutSource(t *testing.T) {
	h := newTestServer(t, &fakeScope{}, notify.NewBoard(), nil)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/events").Code)
}

func TestAPI_RateLimited(t *testing.T) {
	hm := health.NewManager("test")
	s, err := New(Deps{Health: hm, Scope: &fakeScope{}, Alerts: notify.NewBoard(), RateLimit: 2})
	require.NoError(t, err)
	h := s.Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/stream").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/stream").Code)
	rec := do(t, h, http.MethodGet, "/api/v1/stream")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Probes are not limited.
	for range 5 {
		assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz").Code)
	}
}
