// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"context"
	"fmt"

	"github.com/gogpu/gpucontext"
)

// Backend names known to the default priority order.
const (
	BackendWGPU     = "wgpu"
	BackendHeadless = "headless"
)

// Backend opens a device and a surface for a window.
//
// Backends must be registered via Register and are selected via Lookup
// or Best.
type Backend interface {
	// Name returns the backend identifier (e.g., "wgpu", "headless").
	Name() string

	// Open creates the device and the window surface. The window may also
	// implement NativeWindow when the backend needs platform handles.
	Open(ctx context.Context, window gpucontext.WindowProvider) (Device, Surface, error)
}

// NativeWindow is implemented by windows that expose platform handles
// (HWND/HINSTANCE, X11 display/window, Wayland display/surface, CAMetalLayer).
type NativeWindow interface {
	NativeHandles() (display, window uintptr)
}

// Factory creates a new backend instance.
type Factory func() Backend

// Wgpu is fastest; headless is the fallback.
var registry = gpucontext.NewRegistry[Backend](
	gpucontext.WithPriority(BackendWGPU, BackendHeadless),
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it is replaced.
func Register(name string, factory Factory) {
	registry.Register(name, factory)
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registry.Unregister(name)
}

// Available returns the registered backend names.
func Available() []string {
	return registry.Available()
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	return registry.Has(name)
}

// Lookup returns a backend instance by name.
func Lookup(name string) (Backend, error) {
	b := registry.Get(name)
	if b == nil {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	return b, nil
}

// Best returns the highest-priority registered backend.
func Best() (Backend, error) {
	b := registry.Best()
	if b == nil {
		return nil, ErrBackendNotAvailable
	}
	return b, nil
}

// Select returns the named backend, or the best one when name is empty
// or "auto".
func Select(name string) (Backend, error) {
	if name == "" || name == "auto" {
		return Best()
	}
	return Lookup(name)
}
