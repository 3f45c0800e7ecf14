// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ManuGH/inqwatch/internal/platform/httpx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPDialer_SendsBearerAndStreamHeaders(t *testing.T) {
	var got http.Header
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		query = r.URL.RawQuery
		w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "event: NEW_INQUIRY\ndata: {}\n\n")
	}))
	defer srv.Close()

	d := &HTTPDialer{URL: srv.URL + "/events", Client: httpx.NewStreamClient(time.Second), UserAgent: "inqwatch-test"}
	body, err := d.Dial(context.Background(), "abc.def")
	require.NoError(t, err)
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "NEW_INQUIRY")

	assert.Equal(t, "Bearer abc.def", got.Get("Authorization"))
	assert.Equal(t, "text/event-stream", got.Get("Accept"))
	assert.Equal(t, "no-cache", got.Get("Cache-Control"))
	assert.Equal(t, "inqwatch-test", got.Get("User-Agent"))
	assert.Empty(t, got.Get("Last-Event-ID"), "no replay is requested")
	assert.Empty(t, query, "token never travels in the URL")
}

func TestHTTPDialer_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "token expired", http.StatusUnauthorized)
	}))
	defer srv.Close()

	d := &HTTPDialer{URL: srv.URL, Client: httpx.NewStreamClient(time.Second)}
	_, err := d.Dial(context.Background(), "old")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "token expired", se.Body)

	delay, reason := DefaultRetryPolicy().Delay(err)
	assert.Equal(t, 5*time.Second, delay)
	assert.Equal(t, ReasonUnauthorized, reason)
}

func TestHTTPDialer_ServerErrorIsNotUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d := &HTTPDialer{URL: srv.URL, Client: httpx.NewStreamClient(time.Second)}
	_, err := d.Dial(context.Background(), "tok")
	require.Error(t, err)
	assert.False(t, IsUnauthorized(err))
	assert.Contains(t, err.Error(), "503")
}

func TestHTTPDialer_RejectsNonEventStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html>login</html>")
	}))
	defer srv.Close()

	d := &HTTPDialer{URL: srv.URL, Client: httpx.NewStreamClient(time.Second)}
	_, err := d.Dial(context.Background(), "tok")
	require.ErrorIs(t, err, ErrBadHandshake)
}

func TestHTTPDialer_RequiresClient(t *testing.T) {
	_, err := (&HTTPDialer{URL: "http://127.0.0.1"}).Dial(context.Background(), "tok")
	require.Error(t, err)
}

func TestHTTPDialer_EndToEndWithClient(t *testing.T) {
	frames := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		flusher.Flush()
		for {
			select {
			case f := <-frames:
				_, _ = io.WriteString(w, f)
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	}))
	defer srv.Close()

	events := &recorder{}
	c, err := New(Options{
		Tokens:  staticTokens("tok"),
		Dialer:  &HTTPDialer{URL: srv.URL, Client: httpx.NewStreamClient(time.Second)},
		Handler: events.handle,
	})
	require.NoError(t, err)

	require.NoError(t, c.Connect())
	require.Eventually(t, func() bool { return c.Snapshot().State == StateOpen }, waitFor, 5*time.Millisecond)

	frames <- ": keepalive\n\n"
	frames <- "event: NEW_INQUIRY\ndata: {\"firstName\":\"Jane\",\"lastName\":\"Doe\",\"vehicleYear\":2020}\n\n"

	require.Eventually(t, func() bool { return len(events.snapshot()) == 1 }, waitFor, 5*time.Millisecond)
	ev := events.snapshot()[0]
	assert.Equal(t, "New Inquiry from Jane Doe", ev.Title())
	assert.Equal(t, "2020", ev.VehicleYear)

	c.Close()
	c.Wait()
}

type staticTokens string

func (s staticTokens) Token() (string, bool) { return string(s), s != "" }
