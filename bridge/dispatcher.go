// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

package bridge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/labstack/gommon/log"
	"go.uber.org/zap"

	"github.com/shuttlecraft/shuttle/registry"
	"github.com/shuttlecraft/shuttle/serviceapi"
)

// Dispatcher resolves a service name against the registry and routes the
// invocation to the launcher (process kind) or the registered Go function
// (function kind). All three transports share one Dispatcher; it holds no
// per-invocation state.
type Dispatcher struct {
	registry *registry.Registry
	launcher *Launcher
	logger   *zap.Logger
	metrics  *instruments
}

func NewDispatcher(reg *registry.Registry, launcher *Launcher, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		launcher: launcher,
		logger:   logger,
		metrics:  newInstruments(),
	}
}

// Active reports the number of invocations currently running.
func (d *Dispatcher) Active() int64 {
	return d.metrics.inflight.Load()
}

// Invoke runs one invocation to completion. The returned error is
// registry.ErrNotFound for unknown services, *ExitError for nonzero worker
// exits, or a wrapped cause for spawn/handoff/finalize failures. A non-nil
// Outcome means the worker itself concluded, successfully or with a Signal.
func (d *Dispatcher) Invoke(ctx context.Context, name string, payload json.RawMessage, sink Sink) (*Outcome, error) {
	desc, err := d.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		sink = Discard
	}

	d.metrics.begin(ctx, desc)
	start := time.Now()

	var outcome *Outcome
	switch desc.Kind {
	case serviceapi.KindProcess:
		counted := &countingSink{ctx: ctx, m: d.metrics, desc: desc, next: sink}
		outcome, err = d.launcher.Launch(ctx, desc, payload, counted)
	case serviceapi.KindFunction:
		outcome, err = d.invokeFunction(ctx, desc, payload)
	default:
		err = errors.Newf("service %s has unknown kind %q", desc.Name, desc.Kind)
	}

	d.metrics.end(ctx, desc, outcomeLabel(outcome, err), time.Since(start))
	return outcome, err
}

func outcomeLabel(outcome *Outcome, err error) string {
	switch {
	case err != nil:
		return "error"
	case outcome != nil && outcome.Signal != nil:
		return "signal"
	default:
		return "ok"
	}
}

// invokeFunction runs a KindFunction service in-process. A returned *Signal
// error becomes a structured Outcome, matching the worker contract; panics
// and other errors surface generically.
func (d *Dispatcher) invokeFunction(ctx context.Context, desc serviceapi.Descriptor, payload json.RawMessage) (outcome *Outcome, err error) {
	log.Infof("invoke %s (in-process)", desc.Name)
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("invoke %s: panicked: %v", desc.Name, r)
			outcome = nil
			err = errors.Newf("function %s panicked: %v", desc.Name, r)
		}
	}()

	result, fnErr := desc.Fn(ctx, payload)
	if fnErr != nil {
		var sig *serviceapi.Signal
		if errors.As(fnErr, &sig) {
			log.Infof("invoke %s: signaled %d %s", desc.Name, sig.Code, sig.Type)
			return &Outcome{Signal: sig}, nil
		}
		log.Infof("invoke %s: failed: %v", desc.Name, fnErr)
		return nil, fnErr
	}
	if result == nil {
		return &Outcome{}, nil
	}
	raw, mErr := json.Marshal(result)
	if mErr != nil {
		return nil, errors.Wrapf(mErr, "encoding result of %s", desc.Name)
	}
	log.Infof("invoke %s: succeeded", desc.Name)
	return &Outcome{Result: raw}, nil
}
