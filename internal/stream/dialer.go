// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

const maxErrorBody = 512

// Dialer opens the event stream with the given bearer token. The returned
// body must stop blocking once ctx is cancelled.
type Dialer interface {
	Dial(ctx context.Context, token string) (io.ReadCloser, error)
}

// HTTPDialer opens the stream with a GET request.
type HTTPDialer struct {
	URL       string
	Client    *http.Client
	UserAgent string
}

// Dial implements Dialer. The token travels in the Authorization header,
// never in the query string.
func (d *HTTPDialer) Dial(ctx context.Context, token string) (io.ReadCloser, error) {
	if d.Client == nil {
		return nil, errors.New("stream: http dialer has no client")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("stream: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if d.UserAgent != "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stream: dial: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "text/event-stream" {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: content type %q", ErrBadHandshake, resp.Header.Get("Content-Type"))
	}

	return resp.Body, nil
}
