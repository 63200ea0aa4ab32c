package frame

import (
	"context"

	"github.com/gogpu/frame/config"
	"github.com/gogpu/frame/metrics"
	"github.com/gogpu/gpucontext"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// EngineOption configures an Engine during creation.
//
// Example:
//
//	e, err := frame.New(ctx, nil, window,
//	    frame.WithConfig(cfg),
//	    frame.WithStages(background, sprites, overlay),
//	)
type EngineOption func(*engineOptions)

// PreFrameFunc runs on the loop goroutine before each frame. An error is
// logged and does not stop the frame.
type PreFrameFunc func(ctx context.Context) error

// engineOptions holds optional configuration for Engine creation.
type engineOptions struct {
	cfg        config.Config
	stages     []Stage
	tracer     trace.Tracer
	metrics    *metrics.Collectors
	registerer prometheus.Registerer
	preFrame   []PreFrameFunc
	handlers   []EventHandler
	events     gpucontext.EventSource
}

// defaultOptions returns the default engine options.
func defaultOptions() engineOptions {
	return engineOptions{
		cfg:    config.Default(),
		tracer: defaultTracer(),
	}
}

// WithConfig replaces the default configuration.
func WithConfig(cfg config.Config) EngineOption {
	return func(o *engineOptions) {
		o.cfg = cfg
	}
}

// WithStages registers stages in the given order.
//
// Example:
//
//	frame.New(ctx, nil, window, frame.WithStages(background, sprites, overlay))
func WithStages(stages ...Stage) EngineOption {
	return func(o *engineOptions) {
		o.stages = append(o.stages, stages...)
	}
}

// WithTracer sets the tracer used for frame and stage spans.
// The default is the global OpenTelemetry tracer provider.
func WithTracer(t trace.Tracer) EngineOption {
	return func(o *engineOptions) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithMetrics sets the collectors the engine records on. Without it the
// engine creates its own collectors when metrics are enabled in the
// configuration.
func WithMetrics(m *metrics.Collectors) EngineOption {
	return func(o *engineOptions) {
		o.metrics = m
	}
}

// WithRegisterer sets the registerer for collectors the engine creates.
// The default is prometheus.DefaultRegisterer.
func WithRegisterer(r prometheus.Registerer) EngineOption {
	return func(o *engineOptions) {
		o.registerer = r
	}
}

// WithPreFrame adds a hook run before every frame, for example draining
// an action bus.
func WithPreFrame(fn PreFrameFunc) EngineOption {
	return func(o *engineOptions) {
		if fn != nil {
			o.preFrame = append(o.preFrame, fn)
		}
	}
}

// WithEventHandler adds a non-stage receiver of input events. Handlers
// run before stages.
func WithEventHandler(h EventHandler) EngineOption {
	return func(o *engineOptions) {
		if h != nil {
			o.handlers = append(o.handlers, h)
		}
	}
}

// WithEventSource queues input events from src for delivery on the loop
// goroutine.
func WithEventSource(src gpucontext.EventSource) EngineOption {
	return func(o *engineOptions) {
		o.events = src
	}
}
