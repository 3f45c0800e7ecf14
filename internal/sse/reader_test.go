// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sse

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, input string) []Frame {
	t.Helper()
	r := NewReader(strings.NewReader(input))
	var frames []Frame
	for {
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			return frames
		}
		require.NoError(t, err)
		frames = append(frames, f)
	}
}

func TestReader_Frames(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Frame
	}{
		{
			name:  "unnamed keep-alive",
			input: "data: ping\n\n",
			want:  []Frame{{Data: "ping"}},
		},
		{
			name:  "named frame with json",
			input: "event: NEW_INQUIRY\ndata: {\"firstName\":\"Jane\"}\n\n",
			want:  []Frame{{Event: "NEW_INQUIRY", Data: `{"firstName":"Jane"}`}},
		},
		{
			name:  "multi-line data joined with newline",
			input: "data: a\ndata: b\ndata:c\n\n",
			want:  []Frame{{Data: "a\nb\nc"}},
		},
		{
			name:  "comments ignored",
			input: ": heartbeat\n\n: another\ndata: x\n\n",
			want:  []Frame{{Data: "x"}},
		},
		{
			name:  "crlf line endings",
			input: "event: NEW_INQUIRY\r\ndata: {}\r\n\r\n",
			want:  []Frame{{Event: "NEW_INQUIRY", Data: "{}"}},
		},
		{
			name:  "id persists across frames",
			input: "id: 7\ndata: a\n\ndata: b\n\n",
			want:  []Frame{{Data: "a", ID: "7"}, {Data: "b", ID: "7"}},
		},
		{
			name:  "retry field parsed",
			input: "retry: 2500\ndata: a\n\n",
			want:  []Frame{{Data: "a", Retry: 2500 * time.Millisecond}},
		},
		{
			name:  "event without data is not dispatched",
			input: "event: NEW_INQUIRY\n\ndata: next\n\n",
			want:  []Frame{{Data: "next"}},
		},
		{
			name:  "trailing incomplete frame discarded",
			input: "data: done\n\nevent: NEW_INQUIRY\ndata: {}\n",
			want:  []Frame{{Data: "done"}},
		},
		{
			name:  "field without colon",
			input: "data\n\n",
			want:  []Frame{{Data: ""}},
		},
		{
			name:  "bare cr line endings",
			input: "event: NEW_INQUIRY\rdata: {}\r\r",
			want:  []Frame{{Event: "NEW_INQUIRY", Data: "{}"}},
		},
		{
			name:  "mixed line endings",
			input: "event: NEW_INQUIRY\r\ndata: a\rdata: b\n\r\n",
			want:  []Frame{{Event: "NEW_INQUIRY", Data: "a\nb"}},
		},
		{
			name:  "leading byte order mark",
			input: "\ufeffevent: NEW_INQUIRY\ndata: {}\n\n",
			want:  []Frame{{Event: "NEW_INQUIRY", Data: "{}"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := readAll(t, tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("frames mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReader_CRLFSplitAcrossReads(t *testing.T) {
	input := "event: NEW_INQUIRY\r\ndata: {}\r\n\r\ndata: next\r\n\r\n"
	r := NewReader(iotest.OneByteReader(strings.NewReader(input)))

	f, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, Frame{Event: "NEW_INQUIRY", Data: "{}"}, f)

	f, err = r.Next()
	require.NoError(t, err)
	require.Equal(t, Frame{Data: "next"}, f, "a split CRLF never yields an extra blank line")

	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestReader_LineTooLong(t *testing.T) {
	huge := "data: " + strings.Repeat("x", maxFrameLineSize+1) + "\n\n"
	r := NewReader(strings.NewReader(huge))
	_, err := r.Next()
	require.Error(t, err)
	require.ErrorIs(t, err, bufio.ErrTooLong)
}

func TestReader_PropagatesTransportError(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewReader(io.MultiReader(strings.NewReader("data: a\n\n"), &failingReader{err: boom}))

	f, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, "a", f.Data)

	_, err = r.Next()
	require.ErrorIs(t, err, boom)
}

type failingReader struct{ err error }

func (f *failingReader) Read([]byte) (int, error) { return 0, f.err }
