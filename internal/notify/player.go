// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// Player produces the audible cue.
type Player interface {
	Play(ctx context.Context) error
}

// PlayerFunc adapts a function to Player.
type PlayerFunc func(ctx context.Context) error

func (f PlayerFunc) Play(ctx context.Context) error { return f(ctx) }

// NoopPlayer stays silent.
type NoopPlayer struct{}

func (NoopPlayer) Play(context.Context) error { return nil }

// BellPlayer writes the terminal bell character.
type BellPlayer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewBellPlayer returns a player ringing the bell on w.
func NewBellPlayer(w io.Writer) *BellPlayer {
	return &BellPlayer{w: w}
}

func (p *BellPlayer) Play(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := io.WriteString(p.w, "\a")
	return err
}

// CommandPlayer runs an external program such as "paplay chime.wav". The
// process is killed when ctx ends.
type CommandPlayer struct {
	Path string
	Args []string
}

// ParseCommand splits a whitespace separated command line. Quoting is not
// supported.
func ParseCommand(line string) (*CommandPlayer, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, errors.New("notify: empty sound command")
	}
	return &CommandPlayer{Path: fields[0], Args: fields[1:]}, nil
}

func (p *CommandPlayer) Play(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, p.Path, p.Args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("notify: sound command %s: %w", p.Path, ctxErr)
		}
		return fmt.Errorf("notify: sound command %s: %w (%s)", p.Path, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
