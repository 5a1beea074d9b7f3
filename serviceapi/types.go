// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

// Package serviceapi defines the types shared between the shuttle host, its
// transport adapters, and the client SDK: service descriptors, the structured
// error signal workers can return, and the line protocol workers speak on
// stdout.
package serviceapi

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
)

// Kind selects the invocation strategy for a service.
type Kind string

const (
	// KindProcess services run as a fresh worker process per invocation,
	// with input and output passed through handoff files.
	KindProcess Kind = "process"
	// KindFunction services run in-process as a registered Go function.
	// No process spawn, no handoff files.
	KindFunction Kind = "function"
)

// Fn is the implementation of a KindFunction service. The payload is the raw
// JSON request body. Returning a *Signal as the error reports a structured
// failure to the caller; any other error is surfaced generically.
type Fn func(ctx context.Context, payload json.RawMessage) (any, error)

// Descriptor describes one invokable service. Descriptors are created at
// startup, either by directory discovery or by explicit registration, and are
// immutable for the life of the host.
type Descriptor struct {
	Name        string `json:"name"`
	Kind        Kind   `json:"kind"`
	Description string `json:"description"`

	// Dir is the service's directory for KindProcess services. Used for
	// README passthrough; the worker itself resolves the entry file by name.
	Dir string `json:"-"`

	// Fn is the implementation for KindFunction services.
	Fn Fn `json:"-"`
}

// Signal is a structured, recoverable failure reported by a worker. Workers
// return it as their JSON result (and exit 0) instead of crashing; the host
// passes it through verbatim with Code as the HTTP status.
type Signal struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (s *Signal) Error() string {
	return fmt.Sprintf("%s (%d): %s", s.Type, s.Code, s.Message)
}

// SignalFromRaw structurally detects a Signal in a worker's raw JSON result.
// The check is duck-typed on an integral numeric "code" field because workers
// may be written in any language; there is no shared type to match on.
func SignalFromRaw(raw json.RawMessage) (*Signal, bool) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, false
	}
	rawCode, ok := probe["code"]
	if !ok {
		return nil, false
	}
	var code float64
	if err := json.Unmarshal(rawCode, &code); err != nil {
		return nil, false
	}
	if code != math.Trunc(code) {
		return nil, false
	}
	var sig Signal
	if err := json.Unmarshal(raw, &sig); err != nil {
		return nil, false
	}
	return &sig, true
}
