// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestHost_RemountReplacesController(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newFixture("tok")
	h := NewHost(f.controller)
	assert.Equal(t, StateIdle, h.Status().State)

	require.NoError(t, h.Start())
	require.NoError(t, h.Start())
	first := f.dialer.Next(t)
	assert.Equal(t, "tok", first.Token)

	f.tokens.set("rotated")
	require.NoError(t, h.Remount())
	second := f.dialer.Next(t)
	assert.Equal(t, "rotated", second.Token)
	assert.Equal(t, 2, f.dialer.Calls())
	assert.Equal(t, uint64(1), h.Status().Stream.Epoch)

	h.Close()
	h.Close()
	assert.Equal(t, StateStopped, h.Status().State)
	assert.ErrorIs(t, h.Remount(), ErrHostClosed)
	assert.ErrorIs(t, h.Start(), ErrHostClosed)
}
