// Copyright 2025 The Lattice Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dispatch

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func noopMeter() metric.Meter { return noop.NewMeterProvider().Meter("dispatch") }
func noopTracer() trace.Tracer { return tracenoop.NewTracerProvider().Tracer("dispatch") }

// dispatchMetrics is the Meter-backed instrument set the Dispatcher
// records every exchange's outcome to: registry lookup outcomes, handler
// selection outcomes, and error-chain outcomes. The embedding server
// supplies the Meter via WithMeter; this core never starts an exporter or
// provider of its own.
type dispatchMetrics struct {
	lookups    metric.Int64Counter
	selections metric.Int64Counter
	errors     metric.Int64Counter
	duration   metric.Float64Histogram
}

func newDispatchMetrics(m metric.Meter) *dispatchMetrics {
	dm := &dispatchMetrics{}
	// Instrument construction only fails for invalid names/units, which
	// are compile-time constants here; a noop instrument on error keeps
	// recording calls safe without forcing every caller to check.
	dm.lookups, _ = m.Int64Counter("dispatch.registry.lookups",
		metric.WithDescription("registry lookups by outcome"))
	dm.selections, _ = m.Int64Counter("dispatch.handler.selections",
		metric.WithDescription("handler selections by outcome"))
	dm.errors, _ = m.Int64Counter("dispatch.errors",
		metric.WithDescription("error-chain outcomes by status and exception kind"))
	dm.duration, _ = m.Float64Histogram("dispatch.duration",
		metric.WithDescription("end-to-end exchange duration"), metric.WithUnit("s"))
	return dm
}

func (dm *dispatchMetrics) recordLookup(ctx context.Context, outcome string) {
	dm.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (dm *dispatchMetrics) recordSelection(ctx context.Context, outcome string) {
	dm.selections.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (dm *dispatchMetrics) recordError(ctx context.Context, kind string, status int) {
	dm.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Int("status", status),
	))
}

func (dm *dispatchMetrics) recordDuration(ctx context.Context, seconds float64, outcome string) {
	dm.duration.Record(ctx, seconds, metric.WithAttributes(attribute.String("outcome", outcome)))
}
