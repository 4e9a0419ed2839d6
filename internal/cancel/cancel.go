// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cancel provides cooperative cancellation tokens. A token is
// polled at checkpoints and never pushes; once it reports true it reports
// true forever.
package cancel

import (
	"context"
	"sync/atomic"
)

// Token reports whether the current run has been cancelled.
type Token interface {
	IsCancelled() bool
}

// Flag is a token set by its owner.
type Flag struct {
	v atomic.Bool
}

// Cancel sets the flag. Calling it more than once has no further effect.
func (f *Flag) Cancel() {
	f.v.Store(true)
}

// IsCancelled implements Token.
func (f *Flag) IsCancelled() bool {
	return f.v.Load()
}

type ctxToken struct {
	ctx context.Context
}

// FromContext returns a token that reports true once ctx is done.
func FromContext(ctx context.Context) Token {
	return ctxToken{ctx: ctx}
}

func (t ctxToken) IsCancelled() bool {
	return t.ctx.Err() != nil
}

type anyToken struct {
	tokens  []Token
	latched atomic.Bool
}

// Any returns a token that reports true once any of tokens does. Nil
// tokens are ignored.
func Any(tokens ...Token) Token {
	var live []Token
	for _, t := range tokens {
		if t != nil {
			live = append(live, t)
		}
	}
	return &anyToken{tokens: live}
}

func (a *anyToken) IsCancelled() bool {
	if a.latched.Load() {
		return true
	}
	for _, t := range a.tokens {
		if t.IsCancelled() {
			a.latched.Store(true)
			return true
		}
	}
	return false
}

// Never is a token that is never cancelled.
var Never Token = never{}

type never struct{}

func (never) IsCancelled() bool { return false }
