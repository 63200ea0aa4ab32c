// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package shader inspects WGSL sources before they reach a device.
//
// Inspect parses and lowers WGSL with naga and reports the entry points a
// pipeline can bind. Validation findings are collected as diagnostics so a
// caller can decide whether they are fatal; Check makes them fatal.
package shader

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

var (
	// ErrParse wraps WGSL syntax and lowering failures.
	ErrParse = errors.New("shader: invalid WGSL")

	// ErrValidation wraps the first validation diagnostic in Check.
	ErrValidation = errors.New("shader: validation failed")

	// ErrNoEntryPoint is returned by Module.Require.
	ErrNoEntryPoint = errors.New("shader: missing entry point")
)

// Stage is a pipeline stage an entry point runs in.
type Stage uint8

// Shader stages.
const (
	Vertex Stage = iota
	Fragment
	Compute
	Other
)

var stageNames = [...]string{
	Vertex:   "vertex",
	Fragment: "fragment",
	Compute:  "compute",
	Other:    "other",
}

// String returns the WGSL attribute name of the stage.
func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unknown"
}

func stageOf(s ir.ShaderStage) Stage {
	switch s {
	case ir.StageVertex:
		return Vertex
	case ir.StageFragment:
		return Fragment
	case ir.StageCompute:
		return Compute
	default:
		return Other
	}
}

// EntryPoint is one entry point of a module.
type EntryPoint struct {
	Name  string
	Stage Stage

	// Workgroup is the workgroup size of compute entry points.
	Workgroup [3]uint32
}

// Module is an inspected WGSL source.
type Module struct {
	Source      string
	EntryPoints []EntryPoint

	// Diagnostics holds validation findings.
	Diagnostics []string
}

// Inspect parses and lowers source and collects its entry points and
// validation diagnostics.
func Inspect(source string) (*Module, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	mod, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	m := &Module{Source: source}
	for _, ep := range mod.EntryPoints {
		m.EntryPoints = append(m.EntryPoints, EntryPoint{
			Name:      ep.Name,
			Stage:     stageOf(ep.Stage),
			Workgroup: ep.Workgroup,
		})
	}
	findings, err := naga.Validate(mod)
	if err != nil {
		m.Diagnostics = append(m.Diagnostics, err.Error())
	}
	for i := range findings {
		m.Diagnostics = append(m.Diagnostics, findings[i].Error())
	}
	return m, nil
}

// Check is Inspect that also fails on any validation diagnostic.
func Check(source string) (*Module, error) {
	m, err := Inspect(source)
	if err != nil {
		return nil, err
	}
	return m, m.Err()
}

// Err returns nil if m has no diagnostics, or ErrValidation wrapping the
// first one.
func (m *Module) Err() error {
	if len(m.Diagnostics) == 0 {
		return nil
	}
	if n := len(m.Diagnostics); n > 1 {
		return fmt.Errorf("%w: %s (and %d more)", ErrValidation, m.Diagnostics[0], n-1)
	}
	return fmt.Errorf("%w: %s", ErrValidation, m.Diagnostics[0])
}

// Entries returns the entry points of stage in source order.
func (m *Module) Entries(stage Stage) []EntryPoint {
	var out []EntryPoint
	for _, ep := range m.EntryPoints {
		if ep.Stage == stage {
			out = append(out, ep)
		}
	}
	return out
}

// Require returns the entry point called name, or the first entry point
// of stage when name is empty.
func (m *Module) Require(stage Stage, name string) (EntryPoint, error) {
	for _, ep := range m.EntryPoints {
		if ep.Stage == stage && (name == "" || ep.Name == name) {
			return ep, nil
		}
	}
	if name == "" {
		return EntryPoint{}, fmt.Errorf("%w: no %s stage", ErrNoEntryPoint, stage)
	}
	return EntryPoint{}, fmt.Errorf("%w: %s %q", ErrNoEntryPoint, stage, name)
}
