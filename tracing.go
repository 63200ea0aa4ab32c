// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package frame

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope used for the default tracer.
const TracerName = "github.com/gogpu/frame"

// defaultTracer returns the tracer of the global provider, which is a
// no-op until the application installs one.
func defaultTracer() trace.Tracer { return otel.Tracer(TracerName) }

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
