// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package frame

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with a running frame loop.
var loggerPtr atomic.Pointer[slog.Logger]

var (
	liveMu sync.Mutex
	live   = map[loggerSetter]struct{}{}
)

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for frame and every live Engine.
// By default, frame produces no log output.
//
// SetLogger is safe for concurrent use. Pass nil to restore silence.
//
// Every Engine adds a "run" attribute with its RunID. Levels:
//   - [slog.LevelDebug]: submitted and skipped frames, pending resizes
//   - [slog.LevelInfo]: engine start, loop start and stop, target set rebuilds
//   - [slog.LevelWarn]: stage and pre-frame hook failures, unsettled work
//   - [slog.LevelError]: failed acquire, recording or submission
//
// Example:
//
//	frame.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	liveMu.Lock()
	targets := make([]loggerSetter, 0, len(live))
	for s := range live {
		targets = append(targets, s)
	}
	liveMu.Unlock()
	for _, s := range targets {
		s.SetLogger(l)
	}
}

// Logger returns the current logger used by frame.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by engines, components and backends that
// accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes l to v if it implements loggerSetter.
func propagateLogger(v any, l *slog.Logger) {
	if ls, ok := v.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}

// track registers s to receive future SetLogger calls and hands it the
// current logger.
func track(s loggerSetter) {
	liveMu.Lock()
	live[s] = struct{}{}
	liveMu.Unlock()
	s.SetLogger(Logger())
}

func untrack(s loggerSetter) {
	liveMu.Lock()
	delete(live, s)
	liveMu.Unlock()
}
