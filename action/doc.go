// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package action carries externally triggered callback invocations to the
// frame loop.
//
// A Bus subscribes to a watermill topic. Each message names a callback id
// and a JSON argument. The subscriber goroutine only queues requests;
// Drain, installed as an engine pre-frame hook, decodes each argument to
// the callback's declared type and invokes it on the loop goroutine.
//
//	bus := action.NewBus(registry)
//	if err := bus.Start(ctx); err != nil {
//	    return err
//	}
//	defer bus.Close()
//	engine, err := frame.New(ctx, nil, window, frame.WithPreFrame(bus.Drain))
//
// KeyBindings invokes callbacks directly on key presses.
package action
