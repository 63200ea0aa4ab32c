// Command framedemo runs the frame loop on the headless backend and writes
// the last presented image as a PNG.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gogpu/frame"
	"github.com/gogpu/frame/action"
	"github.com/gogpu/frame/backend/headless"
	"github.com/gogpu/frame/callback"
	"github.com/gogpu/frame/config"
	"github.com/gogpu/frame/metrics"
	"github.com/gogpu/frame/stage/fullscreen"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// scene is the state callbacks mutate.
type scene struct {
	X      float64
	Paused bool
}

func main() {
	var (
		configPath = flag.String("config", "", "YAML configuration file")
		width      = flag.Int("width", 320, "window width")
		height     = flag.Int("height", 200, "window height")
		frames     = flag.Int("frames", 60, "frames to render")
		output     = flag.String("output", "frame.png", "output file")
	)
	flag.Parse()

	if err := run(*configPath, *width, *height, *frames, *output); err != nil {
		fmt.Fprintln(os.Stderr, "framedemo:", err)
		os.Exit(1)
	}
}

func run(configPath string, width, height, frames int, output string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return err
	}
	frame.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(cfg.Metrics.Namespace, reg)
	if cfg.Metrics.Enabled {
		if err := m.Register(); err != nil {
			return err
		}
		if cfg.Metrics.Listen != "" {
			go serveMetrics(cfg.Metrics.Listen, reg, logger)
		}
	}

	world := &scene{}
	callbacks := callback.New(world,
		callback.WithLogger(logger),
		callback.WithObserver(func(inv callback.Invocation) { m.Invocation(inv.Err) }),
	)
	nudge := callback.Register(callbacks, func(c *callback.Context[*scene], dx float64) error {
		if !c.World.Paused {
			c.World.X += dx
		}
		return nil
	}, callback.WithName("nudge"))
	pause := callback.Register(callbacks, func(c *callback.Context[*scene], paused bool) error {
		c.World.Paused = paused
		return nil
	}, callback.WithName("pause"))

	bus := action.NewBus(callbacks, action.WithLogger(logger))
	if err := bus.Start(ctx); err != nil {
		return err
	}
	defer bus.Close()

	keys := action.NewKeyBindings(callbacks)
	keys.SetLogger(logger)
	keys.Bind(gpucontext.KeySpace, 0, pause, true)

	background, err := fullscreen.New("Background", cfg.Surface.Clear(), fullscreen.Full)
	if err != nil {
		return err
	}
	sprite, err := fullscreen.New("Sprites", gputypes.Color{R: 1, G: 0.6, B: 0.1, A: 1}, fullscreen.Region{X0: 0, Y0: 0.4, X1: 0.1, Y1: 0.6})
	if err != nil {
		return err
	}
	overlay, err := fullscreen.New("UIOverlay", gputypes.Color{R: 1, G: 1, B: 1, A: 0.5}, fullscreen.Region{X0: 0, Y0: 0.9, X1: 1, Y1: 1})
	if err != nil {
		return err
	}
	sprite.SetLogger(logger)

	backend := headless.New(headless.Config{})
	window := gpucontext.NullWindowProvider{W: width, H: height}

	var (
		engine   *frame.Engine
		rendered int
	)
	moveSprite := func(ctx context.Context) error {
		if err := bus.Drain(ctx); err != nil {
			logger.Warn("framedemo: actions failed", "err", err)
		}
		x := world.X - float64(int(world.X))
		sprite.SetRegion(fullscreen.Region{X0: x * 0.9, Y0: 0.4, X1: x*0.9 + 0.1, Y1: 0.6})

		rendered++
		if rendered == frames/2 {
			engine.Events().Push(frame.Event{Kind: frame.EventKeyPress, Key: gpucontext.KeySpace})
		}
		if rendered > frames {
			engine.RequestClose()
		}
		return bus.Publish(nudge, 1.0/float64(frames))
	}

	engine, err = frame.New(ctx, backend, window,
		frame.WithConfig(cfg),
		frame.WithMetrics(m),
		frame.WithStages(background, sprite, overlay),
		frame.WithEventHandler(keys),
		frame.WithPreFrame(moveSprite),
	)
	if err != nil {
		return err
	}
	defer engine.Close()

	start := time.Now()
	if err := engine.Run(ctx); err != nil {
		return err
	}
	logger.Info("framedemo: finished",
		"frames", backend.Surface.Presents(),
		"elapsed", time.Since(start),
		"paused", world.Paused,
	)

	img := backend.Surface.LastFrame()
	if img == nil {
		return errors.New("no frame presented")
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Info("framedemo: saved", "path", output, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	logger.Info("framedemo: serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("framedemo: metrics server", "err", err)
	}
}
