// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sse

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
)

// ErrInvalidField is returned for event names or IDs containing line breaks.
var ErrInvalidField = errors.New("sse: field contains a line break")

// WriteFrame encodes f. Multi-line data becomes several "data:" lines.
func WriteFrame(w io.Writer, f Frame) error {
	if strings.ContainsAny(f.Event, "\r\n") || strings.ContainsAny(f.ID, "\r\n\x00") {
		return ErrInvalidField
	}
	bw := bufio.NewWriter(w)
	if f.ID != "" {
		writeField(bw, "id", f.ID)
	}
	if f.Event != "" {
		writeField(bw, "event", f.Event)
	}
	if f.Retry > 0 {
		writeField(bw, "retry", strconv.FormatInt(f.Retry.Milliseconds(), 10))
	}
	data := strings.ReplaceAll(f.Data, "\r\n", "\n")
	for _, line := range strings.Split(data, "\n") {
		writeField(bw, "data", line)
	}
	_ = bw.WriteByte('\n')
	return bw.Flush()
}

// WriteComment writes a comment line, typically as a keep-alive.
func WriteComment(w io.Writer, text string) error {
	_, err := io.WriteString(w, ": "+strings.ReplaceAll(text, "\n", " ")+"\n\n")
	return err
}

func writeField(bw *bufio.Writer, name, value string) {
	_, _ = bw.WriteString(name)
	_, _ = bw.WriteString(": ")
	_, _ = bw.WriteString(value)
	_ = bw.WriteByte('\n')
}
