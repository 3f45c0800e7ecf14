// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package token

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestFileProvider_MissingFileIsAbsent(t *testing.T) {
	p, err := NewFileProvider(filepath.Join(t.TempDir(), "token"))
	require.NoError(t, err)

	_, ok := p.Token()
	assert.False(t, ok)
}

func TestFileProvider_EmptyPath(t *testing.T) {
	_, err := NewFileProvider("")
	require.Error(t, err)
}

func TestFileProvider_ReloadPicksUpRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("first\n"), 0o600))

	p, err := NewFileProvider(path)
	require.NoError(t, err)

	tok, ok := p.Token()
	require.True(t, ok)
	assert.Equal(t, "first", tok)

	require.NoError(t, os.WriteFile(path, []byte("second"), 0o600))
	require.NoError(t, p.Reload())
	tok, _ = p.Token()
	assert.Equal(t, "second", tok)

	require.NoError(t, os.Remove(path))
	require.NoError(t, p.Reload())
	_, ok = p.Token()
	assert.False(t, ok)
}

func TestFileProvider_WatchesChanges(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	path := filepath.Join(dir, "token")

	p, err := NewFileProvider(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, p.Start(ctx))
	defer func() { _ = p.Close() }()

	require.NoError(t, os.WriteFile(path, []byte("rotated"), 0o600))
	require.Eventually(t, func() bool {
		tok, ok := p.Token()
		return ok && tok == "rotated"
	}, 2*time.Second, 10*time.Millisecond)

	// Atomic replace via rename.
	tmp := filepath.Join(dir, "token.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("renamed"), 0o600))
	require.NoError(t, os.Rename(tmp, path))
	require.Eventually(t, func() bool {
		tok, ok := p.Token()
		return ok && tok == "renamed"
	}, 2*time.Second, 10*time.Millisecond)
}
