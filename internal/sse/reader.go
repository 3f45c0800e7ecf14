// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package sse encodes and decodes the text/event-stream wire format.
package sse

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	initialBufferSize = 64 * 1024
	maxFrameLineSize  = 2 * 1024 * 1024
)

// Frame is one dispatched event-stream message.
type Frame struct {
	// Event is the value of the last "event:" field. Empty for default
	// (unnamed) frames.
	Event string
	// Data is the concatenation of all "data:" lines joined by "\n".
	Data string
	// ID is the last event ID seen on the stream, including this frame.
	ID string
	// Retry is the reconnection time advertised by the server, zero if absent.
	Retry time.Duration
}

// Named reports whether the frame carried an explicit event name.
func (f Frame) Named() bool {
	return f.Event != ""
}

// Reader reads frames from an event stream in transport order.
type Reader struct {
	sc      *bufio.Scanner
	lastID  string
	started bool
	skipLF  bool
}

// NewReader wraps r. Lines end in CRLF, LF or a bare CR. A leading UTF-8
// byte order mark is ignored. Lines longer than 2 MiB fail the stream with
// bufio.ErrTooLong.
func NewReader(r io.Reader) *Reader {
	rd := &Reader{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, initialBufferSize), maxFrameLineSize)
	sc.Split(rd.scanLines)
	rd.sc = sc
	return rd
}

// Next blocks until the next frame is complete. It returns io.EOF when the
// stream ends; a frame without its terminating blank line is discarded.
func (r *Reader) Next() (Frame, error) {
	var (
		event    string
		data     strings.Builder
		dataSeen bool
		retry    time.Duration
	)

	for r.sc.Scan() {
		line := r.sc.Text()
		if !r.started {
			r.started = true
			line = strings.TrimPrefix(line, "\ufeff")
		}

		if line == "" {
			if !dataSeen {
				// Nothing to dispatch; only event/id/retry fields were seen.
				event = ""
				retry = 0
				continue
			}
			return Frame{Event: event, Data: data.String(), ID: r.lastID, Retry: retry}, nil
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := splitField(line)
		switch field {
		case "event":
			event = value
		case "data":
			if dataSeen {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			dataSeen = true
		case "id":
			if !strings.ContainsRune(value, 0) {
				r.lastID = value
			}
		case "retry":
			if ms, err := strconv.ParseUint(value, 10, 32); err == nil {
				retry = time.Duration(ms) * time.Millisecond
			}
		}
	}

	if err := r.sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return Frame{}, fmt.Errorf("sse: frame line exceeds %d bytes: %w", maxFrameLineSize, err)
		}
		return Frame{}, err
	}
	return Frame{}, io.EOF
}

// scanLines splits on CRLF, LF or CR. A CR at the end of the buffered data
// ends the line at once; an LF arriving next is dropped as the second half
// of a CRLF pair so a live stream never waits on the following read.
func (r *Reader) scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if r.skipLF && len(data) > 0 {
		r.skipLF = false
		if data[0] == '\n' {
			return 1, nil, nil
		}
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 == len(data) {
			r.skipLF = true
			return i + 1, data[:i], nil
		}
		if data[i+1] == '\n' {
			return i + 2, data[:i], nil
		}
		return i + 1, data[:i], nil
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func splitField(line string) (string, string) {
	field, value, found := strings.Cut(line, ":")
	if !found {
		return line, ""
	}
	return field, strings.TrimPrefix(value, " ")
}
