// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/shuttlecraft/shuttle/registry"
	"github.com/shuttlecraft/shuttle/serviceapi"
)

// registerBuiltins adds the in-process functions every host carries.
// Registration failures here mean a services directory already claims the
// name; the discovered service wins and the builtin is skipped.
func registerBuiltins(reg *registry.Registry) {
	builtins := []serviceapi.Descriptor{
		{
			Name:        "ping",
			Kind:        serviceapi.KindFunction,
			Description: "Echo the payload back with a host timestamp",
			Fn:          pingFn,
		},
	}
	for _, desc := range builtins {
		if err := reg.Register(desc); err != nil {
			logger.Warn("skipping builtin, name already registered", zap.String("service", desc.Name))
		}
	}
}

func pingFn(ctx context.Context, payload json.RawMessage) (any, error) {
	return map[string]any{
		"pong":    json.RawMessage(payload),
		"time":    time.Now().UTC().Format(time.RFC3339Nano),
		"version": BuildTag,
	}, nil
}
