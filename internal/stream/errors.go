// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrClosed is returned by Connect after Close.
	ErrClosed = errors.New("stream: client closed")
	// ErrNoToken records that the token provider had no usable credential.
	ErrNoToken = errors.New("stream: no token available")
	// ErrHeartbeatTimeout is the cause of a connection torn down for silence.
	ErrHeartbeatTimeout = errors.New("stream: heartbeat timeout")
	// ErrStreamEnded is reported when the server closes the body cleanly.
	ErrStreamEnded = errors.New("stream: server closed the stream")
	// ErrBadHandshake covers 2xx responses that are not an event stream.
	ErrBadHandshake = errors.New("stream: handshake did not return an event stream")
)

// StatusError is a non-200 response to the stream handshake.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("stream: handshake failed (HTTP %d %s)", e.Code, http.StatusText(e.Code))
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	return msg
}

// IsUnauthorized reports whether err is a 401 handshake failure, which is
// treated as "credential likely expired".
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusUnauthorized
}
