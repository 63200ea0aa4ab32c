// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import "errors"

var (
	// ErrInitialization is returned by Initialize when the surface and device
	// have no compatible configuration.
	ErrInitialization = errors.New("surface: initialization failed")

	// ErrRecreation is returned when the target set could not be rebuilt.
	// It is transient: the pending flag stays raised and the next Acquire
	// retries.
	ErrRecreation = errors.New("surface: recreation failed")

	// ErrDegenerateExtent is wrapped in ErrRecreation when the requested
	// extent has a zero dimension, such as a minimized window.
	ErrDegenerateExtent = errors.New("surface: degenerate extent")

	// ErrNoFormat is wrapped in ErrInitialization when the surface offers
	// no usable color format.
	ErrNoFormat = errors.New("surface: no compatible color format")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("surface: manager closed")
)
