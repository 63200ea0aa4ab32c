// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package metrics exposes Prometheus collectors for the frame loop.
//
// All methods are safe on a nil *Collectors, so components record
// unconditionally and metrics stay optional.
package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Skip reasons used as the "reason" label of frames_skipped_total.
const (
	ReasonZeroExtent = "zero_extent"
	ReasonStale      = "stale"
	ReasonRecreation = "recreation"
	ReasonClose      = "close"
)

// Collectors groups the loop's Prometheus collectors.
type Collectors struct {
	mu sync.Mutex

	framesSubmitted prometheus.Counter
	framesSkipped   *prometheus.CounterVec
	stageErrors     *prometheus.CounterVec
	recreations     prometheus.Counter
	invocations     *prometheus.CounterVec
	frameDuration   prometheus.Histogram
	outstanding     prometheus.Gauge

	registerer prometheus.Registerer
	registered bool
}

func counterOpts(namespace, name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: namespace, Subsystem: "loop", Name: name, Help: help}
}

// New creates the collectors under namespace. A nil registerer means
// prometheus.DefaultRegisterer.
func New(namespace string, registerer prometheus.Registerer) *Collectors {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &Collectors{
		registerer: registerer,
		framesSubmitted: prometheus.NewCounter(counterOpts(namespace,
			"frames_submitted_total", "Frames submitted and presented")),
		framesSkipped: prometheus.NewCounterVec(counterOpts(namespace,
			"frames_skipped_total", "Frames skipped without submission"), []string{"reason"}),
		stageErrors: prometheus.NewCounterVec(counterOpts(namespace,
			"stage_errors_total", "Stage update or bind failures"), []string{"stage", "phase"}),
		recreations: prometheus.NewCounter(counterOpts(namespace,
			"target_recreations_total", "Render target set recreations")),
		invocations: prometheus.NewCounterVec(counterOpts(namespace,
			"callback_invocations_total", "Callback invocations by result"), []string{"result"}),
		frameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "frame_duration_seconds",
			Help:      "CPU time from frame start to submission",
			Buckets:   []float64{.001, .002, .004, .008, .016, .033, .066, .133, .25, .5},
		}),
		outstanding: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "frames_outstanding",
			Help:      "Frames submitted whose GPU work has not completed",
		}),
	}
}

// Register registers the collectors. Safe to call multiple times.
func (c *Collectors) Register() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registered {
		return nil
	}
	for _, col := range []prometheus.Collector{
		c.framesSubmitted,
		c.framesSkipped,
		c.stageErrors,
		c.recreations,
		c.invocations,
		c.frameDuration,
		c.outstanding,
	} {
		if err := c.registerer.Register(col); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	c.registered = true
	return nil
}

// FrameSubmitted records a presented frame and its CPU duration.
func (c *Collectors) FrameSubmitted(d time.Duration) {
	if c == nil {
		return
	}
	c.framesSubmitted.Inc()
	c.frameDuration.Observe(d.Seconds())
}

// FrameSkipped records a frame dropped for reason.
func (c *Collectors) FrameSkipped(reason string) {
	if c == nil {
		return
	}
	c.framesSkipped.WithLabelValues(reason).Inc()
}

// StageError records a failed stage phase.
func (c *Collectors) StageError(stage, phase string) {
	if c == nil {
		return
	}
	c.stageErrors.WithLabelValues(stage, phase).Inc()
}

// Recreated records a target set recreation.
func (c *Collectors) Recreated() {
	if c == nil {
		return
	}
	c.recreations.Inc()
}

// Invocation records a callback invocation outcome.
func (c *Collectors) Invocation(err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.invocations.WithLabelValues(result).Inc()
}

// Outstanding sets the number of frames in flight.
func (c *Collectors) Outstanding(n int) {
	if c == nil {
		return
	}
	c.outstanding.Set(float64(n))
}
