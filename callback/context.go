// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package callback

// Context is handed to a callable for the duration of one invocation.
type Context[W any] struct {
	// World is the registry's shared state.
	World W

	id       ID
	name     string
	reg      *Registry[W]
	deferred []func(W)
}

// ID returns the id of the running callable.
func (c *Context[W]) ID() ID { return c.id }

// Name returns the name given at registration, if any.
func (c *Context[W]) Name() string { return c.name }

// Defer schedules fn to run against the world after the callable returns
// successfully. Deferred functions run in the order they were scheduled;
// a panicking one stops the functions after it.
func (c *Context[W]) Defer(fn func(W)) {
	c.deferred = append(c.deferred, fn)
}

// Invoke calls another registered callable. Invoking the running id fails
// with ErrUnknownID.
func (c *Context[W]) Invoke(id ID, arg any) error {
	return c.reg.Invoke(id, arg)
}
