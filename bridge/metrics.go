// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

package bridge

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/shuttlecraft/shuttle/serviceapi"
)

// instruments holds the bridge's OpenTelemetry metrics. They resolve against
// the global meter provider, so they are no-ops until the daemon installs
// one. inflight shadows the up-down counter for the /status endpoint.
type instruments struct {
	started   metric.Int64Counter
	completed metric.Int64Counter
	active    metric.Int64UpDownCounter
	duration  metric.Float64Histogram
	lines     metric.Int64Counter
	inflight  atomic.Int64
}

func newInstruments() *instruments {
	meter := otel.Meter("github.com/shuttlecraft/shuttle/bridge")
	m := &instruments{}
	m.started, _ = meter.Int64Counter("shuttle.invocations.started",
		metric.WithDescription("Invocations accepted by the dispatcher"))
	m.completed, _ = meter.Int64Counter("shuttle.invocations.completed",
		metric.WithDescription("Invocations finished, by outcome"))
	m.active, _ = meter.Int64UpDownCounter("shuttle.invocations.active",
		metric.WithDescription("Invocations currently running"))
	m.duration, _ = meter.Float64Histogram("shuttle.invocation.duration",
		metric.WithDescription("Invocation wall time"),
		metric.WithUnit("s"))
	m.lines, _ = meter.Int64Counter("shuttle.stream.lines",
		metric.WithDescription("Worker output lines dispatched to callers"))
	return m
}

func (m *instruments) begin(ctx context.Context, desc serviceapi.Descriptor) {
	attrs := metric.WithAttributes(
		attribute.String("service", desc.Name),
		attribute.String("kind", string(desc.Kind)))
	m.started.Add(ctx, 1, attrs)
	m.active.Add(ctx, 1, attrs)
	m.inflight.Add(1)
}

func (m *instruments) end(ctx context.Context, desc serviceapi.Descriptor, outcome string, elapsed time.Duration) {
	kindAttrs := metric.WithAttributes(
		attribute.String("service", desc.Name),
		attribute.String("kind", string(desc.Kind)))
	m.active.Add(ctx, -1, kindAttrs)
	m.inflight.Add(-1)
	m.completed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", desc.Name),
		attribute.String("kind", string(desc.Kind)),
		attribute.String("outcome", outcome)))
	m.duration.Record(ctx, elapsed.Seconds(), kindAttrs)
}

func (m *instruments) countLine(ctx context.Context, desc serviceapi.Descriptor) {
	m.lines.Add(ctx, 1, metric.WithAttributes(attribute.String("service", desc.Name)))
}

// countingSink wraps a caller's sink to count dispatched lines.
type countingSink struct {
	ctx  context.Context
	m    *instruments
	desc serviceapi.Descriptor
	next Sink
}

func (s *countingSink) Log(line string) {
	s.m.countLine(s.ctx, s.desc)
	s.next.Log(line)
}

func (s *countingSink) Event(eventType string, payload any) {
	s.m.countLine(s.ctx, s.desc)
	s.next.Event(eventType, payload)
}
