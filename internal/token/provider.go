// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package token supplies bearer credentials to the inquiry stream.
//
// Providers answer synchronously from memory. Implementations that read
// external stores (files, Redis) refresh in the background and never block
// the caller of Token.
package token

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

// Provider returns the current bearer token, or false when none is usable.
type Provider interface {
	Token() (string, bool)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func() (string, bool)

func (f ProviderFunc) Token() (string, bool) { return f() }

// Static always returns the same token unless it is empty or expired.
type Static string

func (s Static) Token() (string, bool) {
	return usable(string(s), time.Now())
}

// Chain returns the token of the first provider that has one.
type Chain []Provider

func (c Chain) Token() (string, bool) {
	for _, p := range c {
		if p == nil {
			continue
		}
		if tok, ok := p.Token(); ok {
			return tok, true
		}
	}
	return "", false
}

// Expired reports whether tok is a JWT whose exp claim is not after now.
// Opaque tokens never expire from the client's point of view.
func Expired(tok string, now time.Time) bool {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return false
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return false
	}
	var claims struct {
		Exp json.Number `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil || claims.Exp == "" {
		return false
	}
	exp, err := claims.Exp.Float64()
	if err != nil || exp <= 0 {
		return false
	}
	return !now.Before(time.Unix(int64(exp), 0))
}

func usable(tok string, now time.Time) (string, bool) {
	tok = strings.TrimSpace(tok)
	tok = strings.TrimPrefix(tok, "Bearer ")
	if tok == "" || Expired(tok, now) {
		return "", false
	}
	return tok, true
}
