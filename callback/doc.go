// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package callback dispatches runtime-registered behavior against shared
// simulation state.
//
// A Registry[W] owns a world value W and a set of typed single-argument
// callables. Callers that only know an ID, such as a UI button or a
// message on the action bus, invoke behavior without static knowledge of
// the callee:
//
//	reg := callback.New(world)
//	id := callback.Register(reg, func(c *callback.Context[*World], n int) error {
//	    c.World.Score += n
//	    return nil
//	})
//	err := reg.Invoke(id, 5)
//
// # Checkout
//
// During Invoke the entry is removed from the registry. Invoking the same
// id again before the first call returns, recursively from inside the
// callable or from another goroutine, fails with ErrUnknownID instead of
// blocking or observing a half-applied state. The entry is reinserted when
// the call returns, even if it panicked.
//
// Mutations that must not race with the callable's own reads can be
// scheduled with Context.Defer. They run after the callable succeeds and
// are discarded if it fails.
package callback
