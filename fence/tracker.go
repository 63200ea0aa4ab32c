// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package fence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/frame/gpu"
	"github.com/gogpu/frame/surface"
)

var (
	// ErrFrameSkipped is returned by Submit when the target went stale.
	// It is not fatal: the surface has been asked to recreate.
	ErrFrameSkipped = errors.New("fence: frame skipped")

	// ErrFatal wraps every submission failure other than staleness.
	ErrFatal = errors.New("fence: submission failed")
)

// Recreator is told to rebuild its target set before the next frame.
// surface.Manager implements it.
type Recreator interface {
	RequestRecreate()
}

type retiredBuffer struct {
	token gpu.Token
	cmds  gpu.CommandBuffer
}

// Tracker owns the frame-end token of one device.
//
// Tracker is driven from the frame loop goroutine only.
type Tracker struct {
	dev     gpu.Device
	surf    Recreator
	token   gpu.Token
	retired []retiredBuffer
	log     *slog.Logger
}

// New creates a tracker whose token starts completed.
func New(dev gpu.Device, surf Recreator) *Tracker {
	return &Tracker{
		dev:   dev,
		surf:  surf,
		token: gpu.Completed(),
		log:   slog.New(slog.DiscardHandler),
	}
}

// SetLogger replaces the logger. Nil silences logging.
func (t *Tracker) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	t.log = l
}

// Token returns the live frame-end token.
func (t *Tracker) Token() gpu.Token { return t.token }

// Outstanding returns 1 if the most recent frame is still executing.
func (t *Tracker) Outstanding() int {
	if t.token.Done() {
		return 0
	}
	return 1
}

// Retained returns the number of command buffers waiting on the GPU.
func (t *Tracker) Retained() int { return len(t.retired) }

// BeginFrame releases command buffers whose work has completed. It never
// blocks.
func (t *Tracker) BeginFrame() {
	t.dev.Poll()
	kept := t.retired[:0]
	for _, r := range t.retired {
		if r.token.Done() {
			r.cmds.Release()
			continue
		}
		kept = append(kept, r)
	}
	clear(t.retired[len(kept):])
	t.retired = kept
}

// Abandon discards the current frame before anything reached the queue,
// as when the target is stale at acquire.
func (t *Tracker) Abandon() {
	t.token = gpu.Completed()
}

// Submit queues cmds to run after the previous frame and the target's
// acquisition, then presents the target. On success the new frame's token
// replaces the held one.
//
// A stale target yields ErrFrameSkipped. Every other failure wraps ErrFatal.
func (t *Tracker) Submit(ctx context.Context, cmds gpu.CommandBuffer, target surface.Target) (gpu.Token, error) {
	if err := ctx.Err(); err != nil {
		cmds.Release()
		return nil, err
	}
	if !target.Valid() {
		cmds.Release()
		return nil, t.fail(gpu.ErrStale)
	}

	wait := gpu.Join(t.token, target.Ready)
	done, err := t.dev.Submit(cmds, wait)
	if err != nil {
		cmds.Release()
		return nil, t.fail(err)
	}
	t.retired = append(t.retired, retiredBuffer{token: done, cmds: cmds})

	presented, err := target.Present(done)
	if err != nil {
		return nil, t.fail(err)
	}
	if presented == nil || presented == done {
		t.token = done
	} else {
		t.token = gpu.Join(done, presented)
	}
	return t.token, nil
}

func (t *Tracker) fail(err error) error {
	if errors.Is(err, gpu.ErrStale) {
		t.surf.RequestRecreate()
		t.token = gpu.Completed()
		t.log.Debug("fence: stale target, frame skipped", "err", err)
		return fmt.Errorf("%w: %w", ErrFrameSkipped, err)
	}
	t.log.Error("fence: submission failed", "err", err)
	return fmt.Errorf("%w: %w", ErrFatal, err)
}

// Drain waits for every submitted frame to complete and releases their
// command buffers. It returns ctx's error if the deadline passes first;
// buffers still in flight are kept.
func (t *Tracker) Drain(ctx context.Context) error {
	if err := t.token.Wait(ctx); err != nil {
		return err
	}
	for len(t.retired) > 0 {
		r := t.retired[0]
		if err := r.token.Wait(ctx); err != nil {
			return err
		}
		r.cmds.Release()
		t.retired[0] = retiredBuffer{}
		t.retired = t.retired[1:]
	}
	t.token = gpu.Completed()
	return nil
}
