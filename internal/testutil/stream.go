// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package testutil holds fakes shared by package tests.
package testutil

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// WaitFor is how long helpers wait for asynchronous effects.
const WaitFor = 2 * time.Second

// FakeStream is the server end of one dialed event stream.
type FakeStream struct {
	Token string
	pw    *io.PipeWriter
}

// Send writes raw SSE text.
func (s *FakeStream) Send(t testing.TB, raw string) {
	t.Helper()
	_, err := io.WriteString(s.pw, raw)
	require.NoError(t, err)
}

// SendInquiry writes one NEW_INQUIRY frame with the given JSON payload.
func (s *FakeStream) SendInquiry(t testing.TB, payload string) {
	t.Helper()
	s.Send(t, "event: NEW_INQUIRY\ndata: "+payload+"\n\n")
}

// End closes the stream from the server side.
func (s *FakeStream) End() {
	_ = s.pw.Close()
}

// FakeDialer hands out pipe-backed streams. Queued errors are returned by
// the next dials instead.
type FakeDialer struct {
	mu      sync.Mutex
	calls   int
	errs    []error
	streams chan *FakeStream
}

// NewFakeDialer returns a dialer with room for 16 undrained streams.
func NewFakeDialer() *FakeDialer {
	return &FakeDialer{streams: make(chan *FakeStream, 16)}
}

// FailNext queues errors for the next dials.
func (d *FakeDialer) FailNext(errs ...error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errs = append(d.errs, errs...)
}

// Dial implements stream.Dialer.
func (d *FakeDialer) Dial(ctx context.Context, token string) (io.ReadCloser, error) {
	d.mu.Lock()
	d.calls++
	var err error
	if len(d.errs) > 0 {
		err, d.errs = d.errs[0], d.errs[1:]
	}
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	context.AfterFunc(ctx, func() { _ = pw.CloseWithError(context.Cause(ctx)) })
	d.streams <- &FakeStream{Token: token, pw: pw}
	return pr, nil
}

// Calls returns the number of Dial calls so far.
func (d *FakeDialer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// Next waits for the next successful dial.
func (d *FakeDialer) Next(t testing.TB) *FakeStream {
	t.Helper()
	select {
	case s := <-d.streams:
		return s
	case <-time.After(WaitFor):
		t.Fatal("no stream dialed")
		return nil
	}
}
