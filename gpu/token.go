// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"context"
	"time"
)

// Token signals completion of previously submitted GPU work.
//
// Done is non-blocking. Wait blocks until the work completes or ctx ends.
// Backends implement Token with whatever primitive they have (fence, timeline
// semaphore, submission index).
type Token interface {
	Done() bool
	Wait(ctx context.Context) error
}

type completedToken struct{}

func (completedToken) Done() bool                 { return true }
func (completedToken) Wait(context.Context) error { return nil }

// Completed returns the immediately satisfied token.
func Completed() Token { return completedToken{} }

// IsCompleted reports whether t is nil or the Completed sentinel.
func IsCompleted(t Token) bool {
	if t == nil {
		return true
	}
	_, ok := t.(completedToken)
	return ok
}

// Join returns a token that is done when every non-nil token in ts is done.
// Completed tokens are dropped, so joining with the sentinel is free.
func Join(ts ...Token) Token {
	parts := make([]Token, 0, len(ts))
	for _, t := range ts {
		if IsCompleted(t) {
			continue
		}
		if j, ok := t.(*joinedToken); ok {
			parts = append(parts, j.parts...)
			continue
		}
		parts = append(parts, t)
	}
	switch len(parts) {
	case 0:
		return Completed()
	case 1:
		return parts[0]
	default:
		return &joinedToken{parts: parts}
	}
}

type joinedToken struct {
	parts []Token
}

func (j *joinedToken) Done() bool {
	for _, t := range j.parts {
		if !t.Done() {
			return false
		}
	}
	return true
}

func (j *joinedToken) Wait(ctx context.Context) error {
	for _, t := range j.parts {
		if err := t.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// PollInterval is the sleep between Done checks in WaitPolling.
var PollInterval = 200 * time.Microsecond

// WaitPolling blocks until done reports true or ctx ends. It is a helper for
// backends whose only completion primitive is a non-blocking query.
func WaitPolling(ctx context.Context, done func() bool) error {
	if done() {
		return nil
	}
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if done() {
				return nil
			}
		}
	}
}
