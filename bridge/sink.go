// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

// Package bridge is the process-bridging runtime: it spawns one worker
// process per invocation with a file handoff for input and output,
// multiplexes the worker's stdout into logs, typed events, and a final
// result, and classifies worker failures for the transport layer.
package bridge

// Sink receives a worker's classified output as it is produced. Callbacks
// fire in stdout emission order, one line at a time; they may be invoked from
// the goroutines draining the worker's pipes and must be safe to call until
// the invocation returns.
type Sink interface {
	Log(line string)
	Event(eventType string, payload any)
}

type nopSink struct{}

func (nopSink) Log(string)        {}
func (nopSink) Event(string, any) {}

// Discard is a Sink that drops everything. The synchronous transport uses it:
// that transport has no live feedback channel.
var Discard Sink = nopSink{}

// Callbacks adapts plain functions to a Sink. Nil functions are skipped.
type Callbacks struct {
	OnLog   func(line string)
	OnEvent func(eventType string, payload any)
}

func (c Callbacks) Log(line string) {
	if c.OnLog != nil {
		c.OnLog(line)
	}
}

func (c Callbacks) Event(eventType string, payload any) {
	if c.OnEvent != nil {
		c.OnEvent(eventType, payload)
	}
}
