// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package config loads frame loop settings from YAML.
//
//	backend: auto
//	surface:
//	  present_mode: mailbox
//	  prefer_srgb: true
//	  frame_latency: 2
//	  clear_color: [0, 0, 0.1, 1]
//	frame:
//	  interval: 16ms
//	  drain_timeout: 2s
//	log:
//	  level: info
//	  format: text
//	metrics:
//	  enabled: true
//	  namespace: frame
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gogpu/gputypes"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Backend string        `yaml:"backend"`
	Surface SurfaceConfig `yaml:"surface"`
	Frame   FrameConfig   `yaml:"frame"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// SurfaceConfig selects swapchain parameters.
type SurfaceConfig struct {
	// PresentMode is one of fifo, fifo_relaxed, immediate, mailbox.
	PresentMode  string     `yaml:"present_mode"`
	PreferSRGB   bool       `yaml:"prefer_srgb"`
	FrameLatency uint32     `yaml:"frame_latency"`
	ClearColor   [4]float64 `yaml:"clear_color"`
}

// FrameConfig controls loop pacing and shutdown.
type FrameConfig struct {
	// Interval is the minimum time between frames. Zero runs unpaced.
	Interval time.Duration `yaml:"interval"`

	// DrainTimeout bounds the wait for in-flight GPU work on shutdown
	// and before the targets are rebuilt. Zero never waits: shutdown
	// skips the drain and a rebuild is postponed until the work retires.
	DrainTimeout time.Duration `yaml:"drain_timeout"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls Prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`

	// Listen is an optional address to serve /metrics on.
	Listen string `yaml:"listen"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Backend: "auto",
		Surface: SurfaceConfig{
			PresentMode:  "fifo",
			PreferSRGB:   true,
			FrameLatency: 2,
			ClearColor:   [4]float64{0, 0, 0.1, 1},
		},
		Frame: FrameConfig{
			DrainTimeout: 2 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Namespace: "frame",
		},
	}
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read parses a configuration from r.
func Read(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("config: read: %w", err)
	}
	return Parse(data)
}

// Load parses the file at path. An empty path returns Default.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid")

// Validate checks field ranges and enumerations.
func (c Config) Validate() error {
	if _, err := c.Surface.Mode(); err != nil {
		return err
	}
	if c.Surface.FrameLatency > 3 {
		return fmt.Errorf("%w: surface.frame_latency must be 0-3, got %d", ErrInvalid, c.Surface.FrameLatency)
	}
	for i, v := range c.Surface.ClearColor {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: surface.clear_color[%d] out of range: %v", ErrInvalid, i, v)
		}
	}
	if c.Frame.Interval < 0 {
		return fmt.Errorf("%w: frame.interval must not be negative", ErrInvalid)
	}
	if c.Frame.DrainTimeout < 0 {
		return fmt.Errorf("%w: frame.drain_timeout must not be negative", ErrInvalid)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log.format unsupported: %q", ErrInvalid, c.Log.Format)
	}
	if c.Metrics.Enabled && strings.TrimSpace(c.Metrics.Namespace) == "" {
		return fmt.Errorf("%w: metrics.namespace is required when metrics are enabled", ErrInvalid)
	}
	return nil
}

// Mode converts PresentMode to the WebGPU enum. Empty means Fifo.
func (s SurfaceConfig) Mode() (gputypes.PresentMode, error) {
	switch strings.ToLower(strings.TrimSpace(s.PresentMode)) {
	case "", "fifo", "vsync":
		return gputypes.PresentModeFifo, nil
	case "fifo_relaxed":
		return gputypes.PresentModeFifoRelaxed, nil
	case "immediate":
		return gputypes.PresentModeImmediate, nil
	case "mailbox":
		return gputypes.PresentModeMailbox, nil
	default:
		return gputypes.PresentModeUndefined, fmt.Errorf("%w: surface.present_mode unsupported: %q", ErrInvalid, s.PresentMode)
	}
}

// Clear returns ClearColor as a WebGPU color.
func (s SurfaceConfig) Clear() gputypes.Color {
	c := s.ClearColor
	return gputypes.Color{R: c[0], G: c[1], B: c[2], A: c[3]}
}
