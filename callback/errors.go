// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package callback

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownID is returned for ids that were never registered, were
	// unregistered, or are currently executing.
	ErrUnknownID = errors.New("callback: unknown id")

	// ErrArgumentType is returned when the argument does not match the
	// callable's parameter type.
	ErrArgumentType = errors.New("callback: argument type mismatch")

	// ErrPanic wraps a panic recovered from a callable.
	ErrPanic = errors.New("callback: panic")
)

// PanicError carries the value recovered from a panicking callable.
type PanicError struct {
	ID    ID
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("callback: panic in %s: %v", e.ID, e.Value)
}

// Unwrap makes errors.Is(err, ErrPanic) true.
func (e *PanicError) Unwrap() error { return ErrPanic }
