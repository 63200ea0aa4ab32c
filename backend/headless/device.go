// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package headless

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/frame/gpu"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Config describes the simulated device and surface.
type Config struct {
	// Capabilities reported for every surface. Zero value uses
	// DefaultCapabilities.
	Capabilities gputypes.SurfaceCapabilities

	// ImageCount is the number of swapchain images. Default 3.
	ImageCount int

	// CompletionPolls is how many Poll calls a submission needs before its
	// token reports done. Zero completes work at submission.
	CompletionPolls int
}

// DefaultCapabilities mirrors a typical desktop compositor.
func DefaultCapabilities() gputypes.SurfaceCapabilities {
	return gputypes.SurfaceCapabilities{
		Formats: []gputypes.TextureFormat{
			gputypes.TextureFormatBGRA8Unorm,
			gputypes.TextureFormatBGRA8UnormSrgb,
			gputypes.TextureFormatRGBA16Float,
		},
		PresentModes: []gputypes.PresentMode{
			gputypes.PresentModeFifo,
			gputypes.PresentModeMailbox,
			gputypes.PresentModeImmediate,
		},
		AlphaModes: []gputypes.CompositeAlphaMode{
			gputypes.CompositeAlphaModeOpaque,
			gputypes.CompositeAlphaModePremultiplied,
		},
		Usages: gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	}
}

// Submission records one command buffer that reached the queue.
type Submission struct {
	// Index is the queue submission index, starting at 1.
	Index uint64

	// Image is the swapchain image the pass rendered into.
	Image uint32

	// Marks holds the labels recorded with gpu.Marker, in order.
	Marks []string

	// Commands holds every recorded command, including marks.
	Commands []Command
}

// CommandsFor returns the commands recorded after the mark with label and
// before the next mark.
func (s Submission) CommandsFor(label string) []Command {
	var out []Command
	in := false
	for _, c := range s.Commands {
		if m, ok := c.(MarkCommand); ok {
			in = m.Label == label
			continue
		}
		if in {
			out = append(out, c)
		}
	}
	return out
}

// Device is the simulated GPU device and queue.
type Device struct {
	mu sync.Mutex

	cfg Config
	log *slog.Logger

	submitted uint64
	completed uint64
	inflight  []inflight

	submissions []Submission
	format      gputypes.TextureFormat

	staleAcquires      int
	suboptimalAcquires int
	stalePresents      int
	submitErr          error
	released           bool
}

type inflight struct {
	index     uint64
	remaining int
}

var _ gpu.Device = (*Device)(nil)

// NewDevice creates a device.
func NewDevice(cfg Config) *Device {
	if cfg.Capabilities.Formats == nil {
		cfg.Capabilities = DefaultCapabilities()
	}
	if cfg.ImageCount <= 0 {
		cfg.ImageCount = 3
	}
	return &Device{cfg: cfg, log: slog.New(slog.DiscardHandler)}
}

// SetLogger replaces the logger. Nil silences logging.
func (d *Device) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	d.mu.Lock()
	d.log = l
	d.mu.Unlock()
}

// Capabilities implements gpu.Device.
func (d *Device) Capabilities(s gpu.Surface) (gputypes.SurfaceCapabilities, error) {
	if _, ok := s.(*Surface); !ok {
		return gputypes.SurfaceCapabilities{}, fmt.Errorf("headless: foreign surface %T: %w", s, gpu.ErrUnsupported)
	}
	return d.cfg.Capabilities, nil
}

// Configure implements gpu.Device.
func (d *Device) Configure(s gpu.Surface, cfg gputypes.SurfaceConfiguration) (gpu.Swapchain, error) {
	surf, ok := s.(*Surface)
	if !ok {
		return nil, fmt.Errorf("headless: foreign surface %T: %w", s, gpu.ErrUnsupported)
	}
	if surf.released {
		return nil, gpu.ErrSurfaceLost
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("headless: configure %dx%d: %w", cfg.Width, cfg.Height, gpu.ErrUnsupported)
	}
	if !supports(d.cfg.Capabilities.Formats, cfg.Format) {
		return nil, fmt.Errorf("headless: format %v: %w", cfg.Format, gpu.ErrUnsupported)
	}

	d.mu.Lock()
	d.format = cfg.Format
	d.mu.Unlock()

	sc := &Swapchain{dev: d, surf: surf, cfg: cfg}
	for i := range d.cfg.ImageCount {
		sc.images = append(sc.images, newImage(uint32(i), cfg.Format, cfg.Width, cfg.Height))
	}
	surf.configured++
	return sc, nil
}

func supports[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// CreateEncoder implements gpu.Device.
func (d *Device) CreateEncoder(label string) (gpu.Encoder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return nil, gpu.ErrDeviceLost
	}
	return &Encoder{label: label}, nil
}

// Submit implements gpu.Device. The commands are executed on the CPU
// immediately; the returned token retires after CompletionPolls polls.
func (d *Device) Submit(cb gpu.CommandBuffer, wait gpu.Token) (gpu.Token, error) {
	buf, ok := cb.(*CommandBuffer)
	if !ok {
		return nil, fmt.Errorf("headless: foreign command buffer %T: %w", cb, gpu.ErrUnsupported)
	}
	if buf.released {
		return nil, fmt.Errorf("headless: submit: %w", gpu.ErrReleased)
	}

	d.mu.Lock()
	if d.released {
		d.mu.Unlock()
		return nil, gpu.ErrDeviceLost
	}
	if err := d.submitErr; err != nil {
		d.submitErr = nil
		d.mu.Unlock()
		return nil, err
	}
	d.submitted++
	idx := d.submitted
	sub := Submission{Index: idx, Commands: buf.commands}
	if buf.target != nil {
		sub.Image = buf.target.Index
	}
	for _, c := range buf.commands {
		if m, ok := c.(MarkCommand); ok {
			sub.Marks = append(sub.Marks, m.Label)
		}
	}
	d.submissions = append(d.submissions, sub)
	if d.cfg.CompletionPolls == 0 {
		d.completed = idx
	} else {
		d.inflight = append(d.inflight, inflight{index: idx, remaining: d.cfg.CompletionPolls})
	}
	log := d.log
	d.mu.Unlock()

	if buf.target != nil {
		for _, c := range buf.commands {
			execute(buf.target.Pixels, c)
		}
	}
	log.Debug("headless: submitted", "index", idx, "commands", len(buf.commands))
	return &token{dev: d, index: idx}, nil
}

// Poll implements gpu.Device.
func (d *Device) Poll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pollLocked()
}

func (d *Device) pollLocked() {
	kept := d.inflight[:0]
	for _, f := range d.inflight {
		f.remaining--
		if f.remaining <= 0 && f.index == d.completed+1 {
			d.completed = f.index
			continue
		}
		kept = append(kept, f)
	}
	d.inflight = kept
}

// completeThrough retires every submission up to index.
func (d *Device) completeThrough(index uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if index > d.completed {
		d.completed = index
	}
	kept := d.inflight[:0]
	for _, f := range d.inflight {
		if f.index > d.completed {
			kept = append(kept, f)
		}
	}
	d.inflight = kept
}

// Provider implements gpu.Device.
func (d *Device) Provider() gpucontext.DeviceProvider { return provider{d} }

// Release implements gpu.Device.
func (d *Device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.released = true
}

// Submissions returns a copy of every submission so far.
func (d *Device) Submissions() []Submission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Submission(nil), d.submissions...)
}

// Completed returns the highest retired submission index.
func (d *Device) Completed() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.completed
}

// Pending returns the number of submissions not yet retired.
func (d *Device) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int(d.submitted - d.completed)
}

// StaleAcquires makes the next n acquisitions report gpu.ErrStale.
func (d *Device) StaleAcquires(n int) {
	d.mu.Lock()
	d.staleAcquires = n
	d.mu.Unlock()
}

// SuboptimalAcquires makes the next n acquisitions report suboptimal.
func (d *Device) SuboptimalAcquires(n int) {
	d.mu.Lock()
	d.suboptimalAcquires = n
	d.mu.Unlock()
}

// StalePresents makes the next n presentations report gpu.ErrStale.
func (d *Device) StalePresents(n int) {
	d.mu.Lock()
	d.stalePresents = n
	d.mu.Unlock()
}

// FailSubmit makes the next submission return err.
func (d *Device) FailSubmit(err error) {
	d.mu.Lock()
	d.submitErr = err
	d.mu.Unlock()
}

func (d *Device) takeFault(n *int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if *n > 0 {
		*n--
		return true
	}
	return false
}

// token is a queue submission index.
type token struct {
	dev   *Device
	index uint64
}

func (t *token) Done() bool { return t.dev.Completed() >= t.index }

// Wait drives the simulated queue to completion of t. It never blocks.
func (t *token) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil && !t.Done() {
		return err
	}
	t.dev.completeThrough(t.index)
	return nil
}

// provider exposes the device through gpucontext.
type provider struct{ d *Device }

func (p provider) Device() gpucontext.Device { return p.d }
func (p provider) Queue() gpucontext.Queue   { return p.d }

func (p provider) SurfaceFormat() gputypes.TextureFormat {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()
	return p.d.format
}

func (p provider) Adapter() gpucontext.Adapter { return nil }

func (p provider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "headless", Type: gpucontext.AdapterTypeSoftware}
}

// ErrInjected is a convenience error for FailSubmit.
var ErrInjected = errors.New("headless: injected failure")
