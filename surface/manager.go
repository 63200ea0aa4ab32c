// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/frame/gpu"
	"github.com/gogpu/gputypes"
)

// AcquireStatus classifies the result of Acquire.
type AcquireStatus int

const (
	// AcquireOK means the target matches the surface.
	AcquireOK AcquireStatus = iota

	// AcquireSuboptimal means the target is usable for this frame, and the
	// set will be rebuilt before the next one.
	AcquireSuboptimal

	// AcquireStale means nothing can be presented this frame. The caller
	// must skip it; the set is rebuilt at the next Acquire.
	AcquireStale
)

func (s AcquireStatus) String() string {
	switch s {
	case AcquireOK:
		return "ok"
	case AcquireSuboptimal:
		return "suboptimal"
	case AcquireStale:
		return "stale"
	default:
		return fmt.Sprintf("AcquireStatus(%d)", int(s))
	}
}

// Options configure swapchain selection.
type Options struct {
	PresentMode  gputypes.PresentMode
	PreferSRGB   bool
	FrameLatency uint32
	Logger       *slog.Logger

	// OnRecreate is called after every successful recreation with the
	// new set. It is not called for the set built by Initialize.
	OnRecreate func(*TargetSet)
}

// Option configures a Manager.
type Option func(*Options)

// WithPresentMode sets the preferred present mode. Fifo is used when the
// surface does not support it.
func WithPresentMode(m gputypes.PresentMode) Option {
	return func(o *Options) { o.PresentMode = m }
}

// WithSRGB prefers sRGB formats among equally scored candidates.
func WithSRGB(prefer bool) Option {
	return func(o *Options) { o.PreferSRGB = prefer }
}

// WithFrameLatency sets the desired maximum number of frames in flight.
func WithFrameLatency(n uint32) Option {
	return func(o *Options) { o.FrameLatency = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithRecreateHook registers fn to observe recreated sets.
func WithRecreateHook(fn func(*TargetSet)) Option {
	return func(o *Options) { o.OnRecreate = fn }
}

// Manager owns the render-target set of one surface.
//
// Manager is driven from the frame loop goroutine only.
type Manager struct {
	dev  gpu.Device
	surf gpu.Surface
	opts Options

	format      gputypes.TextureFormat
	presentMode gputypes.PresentMode
	alphaMode   gputypes.CompositeAlphaMode

	set        *TargetSet
	extent     gpu.Extent
	pending    bool
	generation uint64
	recreated  int
	closed     bool
	log        *slog.Logger
}

// Initialize selects a format, present mode and composite alpha mode for
// surf and configures the first target set at extent.
func Initialize(dev gpu.Device, surf gpu.Surface, extent gpu.Extent, opts ...Option) (*Manager, error) {
	o := Options{PreferSRGB: true, FrameLatency: 2}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if dev == nil || surf == nil {
		return nil, fmt.Errorf("%w: nil device or surface", ErrInitialization)
	}
	if extent.IsZero() {
		return nil, fmt.Errorf("%w: %w", ErrInitialization, ErrDegenerateExtent)
	}

	caps, err := dev.Capabilities(surf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	if caps.Usages != gputypes.TextureUsageNone && !caps.Usages.Contains(gputypes.TextureUsageRenderAttachment) {
		return nil, fmt.Errorf("%w: surface cannot be a render attachment", ErrInitialization)
	}
	format, ok := ChooseFormat(caps.Formats, o.PreferSRGB)
	if !ok {
		return nil, fmt.Errorf("%w: %w", ErrInitialization, ErrNoFormat)
	}

	m := &Manager{
		dev:         dev,
		surf:        surf,
		opts:        o,
		format:      format,
		presentMode: ChoosePresentMode(caps.PresentModes, o.PresentMode),
		alphaMode:   ChooseAlphaMode(caps.AlphaModes),
		extent:      extent,
		log:         o.Logger,
	}

	set, err := m.build(extent)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	m.set = set
	m.log.Info("surface: configured",
		"extent", extent.String(),
		"format", format.String(),
		"present_mode", m.presentMode.String(),
		"alpha_mode", m.alphaMode.String(),
		"images", set.Len(),
	)
	return m, nil
}

// SetLogger replaces the logger. Nil silences logging.
func (m *Manager) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	m.log = l
}

// Targets returns the current target set.
func (m *Manager) Targets() *TargetSet { return m.set }

// Extent returns the most recently requested extent. It differs from
// Targets().Extent while a resize is pending.
func (m *Manager) Extent() gpu.Extent { return m.extent }

// Pending reports whether a recreation is scheduled for the next Acquire.
func (m *Manager) Pending() bool { return m.pending }

// Recreations returns how many times the set has been rebuilt.
func (m *Manager) Recreations() int { return m.recreated }

// Format returns the selected surface format.
func (m *Manager) Format() gputypes.TextureFormat { return m.format }

// Resize records a new window extent. Recreation is deferred to the next
// Acquire. A resize back to the live extent with nothing pending is a no-op.
func (m *Manager) Resize(extent gpu.Extent) {
	if !m.pending && m.set != nil && extent == m.set.Extent {
		m.extent = extent
		return
	}
	m.extent = extent
	m.pending = true
	m.log.Debug("surface: resize pending", "extent", extent.String())
}

// RequestRecreate schedules a recreation at the current extent.
func (m *Manager) RequestRecreate() {
	m.pending = true
}

// Acquire returns the target for this frame, rebuilding the set first when
// a recreation is pending.
//
// A stale chain reports AcquireStale with a nil error. A failed recreation
// reports AcquireStale with an error wrapping ErrRecreation; the caller
// skips the frame and the next Acquire retries. Any other error is fatal.
func (m *Manager) Acquire(ctx context.Context) (Target, AcquireStatus, error) {
	if m.closed {
		return Target{}, AcquireStale, ErrClosed
	}
	if m.pending {
		if _, err := m.Recreate(m.extent); err != nil {
			return Target{}, AcquireStale, err
		}
	}

	acq, err := m.set.swapchain.Acquire(ctx)
	switch {
	case errors.Is(err, gpu.ErrStale):
		m.pending = true
		m.log.Debug("surface: stale at acquire", "generation", m.set.Generation)
		return Target{}, AcquireStale, nil
	case err != nil:
		return Target{}, AcquireStale, err
	}

	t := Target{Index: acq.Index, View: acq.View, Ready: acq.Ready, set: m.set}
	if t.Ready == nil {
		t.Ready = gpu.Completed()
	}
	if acq.Suboptimal {
		m.pending = true
		return t, AcquireSuboptimal, nil
	}
	return t, AcquireOK, nil
}

// Recreate rebuilds the full target set at extent and retires the old one.
// On failure the old set is already gone, the pending flag stays raised and
// the error wraps ErrRecreation.
func (m *Manager) Recreate(extent gpu.Extent) (*TargetSet, error) {
	if m.closed {
		return nil, ErrClosed
	}
	m.extent = extent
	if extent.IsZero() {
		m.pending = true
		return nil, fmt.Errorf("%w: %w: %v", ErrRecreation, ErrDegenerateExtent, extent)
	}

	if m.set != nil {
		m.set.retire()
	}
	set, err := m.build(extent)
	if err != nil {
		m.pending = true
		return nil, fmt.Errorf("%w: %w", ErrRecreation, err)
	}
	m.set = set
	m.pending = false
	m.recreated++
	m.log.Info("surface: target set recreated", "generation", set.Generation, "extent", extent.String())
	if m.opts.OnRecreate != nil {
		m.opts.OnRecreate(set)
	}
	return set, nil
}

func (m *Manager) build(extent gpu.Extent) (*TargetSet, error) {
	cfg := gputypes.SurfaceConfiguration{
		Usage:                      gputypes.TextureUsageRenderAttachment,
		Format:                     m.format,
		Width:                      extent.Width,
		Height:                     extent.Height,
		PresentMode:                m.presentMode,
		DesiredMaximumFrameLatency: m.opts.FrameLatency,
		AlphaMode:                  m.alphaMode,
	}
	sc, err := m.dev.Configure(m.surf, cfg)
	if err != nil {
		return nil, err
	}
	m.generation++
	return &TargetSet{
		Generation:  m.generation,
		Extent:      extent,
		Format:      m.format,
		PresentMode: m.presentMode,
		AlphaMode:   m.alphaMode,
		swapchain:   sc,
	}, nil
}

// Close retires the current set. The surface itself belongs to the caller.
func (m *Manager) Close() {
	if m.closed {
		return
	}
	m.closed = true
	if m.set != nil {
		m.set.retire()
	}
}
