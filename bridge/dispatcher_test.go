// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

package bridge

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/shuttlecraft/shuttle/registry"
	"github.com/shuttlecraft/shuttle/serviceapi"
)

func newFunctionDispatcher(t *testing.T, reg *registry.Registry) *Dispatcher {
	t.Helper()
	return NewDispatcher(reg, nil, zaptest.NewLogger(t))
}

func TestInvokeUnknownService(t *testing.T) {
	d := newFunctionDispatcher(t, registry.New())
	outcome, err := d.Invoke(context.Background(), "nope", nil, Discard)
	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestInvokeFunction(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.RegisterFunction("double", "", func(ctx context.Context, payload json.RawMessage) (any, error) {
		var in struct {
			N int `json:"n"`
		}
		if err := json.Unmarshal(payload, &in); err != nil {
			return nil, err
		}
		return map[string]int{"n": in.N * 2}, nil
	}))
	d := newFunctionDispatcher(t, reg)

	outcome, err := d.Invoke(context.Background(), "double", json.RawMessage(`{"n":21}`), Discard)
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":42}`, string(outcome.Result))
}

func TestInvokeFunctionSignal(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.RegisterFunction("limited", "", func(ctx context.Context, payload json.RawMessage) (any, error) {
		return nil, &serviceapi.Signal{Code: 429, Type: "RATE_LIMIT", Message: "slow down"}
	}))
	d := newFunctionDispatcher(t, reg)

	outcome, err := d.Invoke(context.Background(), "limited", nil, Discard)
	require.NoError(t, err)
	require.NotNil(t, outcome.Signal)
	assert.Equal(t, 429, outcome.Signal.Code)
}

func TestInvokeFunctionWrappedSignal(t *testing.T) {
	// Signals survive error wrapping; the dispatcher unwraps with errors.As.
	reg := registry.New()
	require.NoError(t, reg.RegisterFunction("wrapped", "", func(ctx context.Context, payload json.RawMessage) (any, error) {
		sig := &serviceapi.Signal{Code: 403, Type: "FORBIDDEN", Message: "no"}
		return nil, errors.Wrap(sig, "checking permissions")
	}))
	d := newFunctionDispatcher(t, reg)

	outcome, err := d.Invoke(context.Background(), "wrapped", nil, Discard)
	require.NoError(t, err)
	require.NotNil(t, outcome.Signal)
	assert.Equal(t, 403, outcome.Signal.Code)
}

func TestInvokeFunctionError(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.RegisterFunction("broken", "", func(ctx context.Context, payload json.RawMessage) (any, error) {
		return nil, errors.New("database is on fire")
	}))
	d := newFunctionDispatcher(t, reg)

	outcome, err := d.Invoke(context.Background(), "broken", nil, Discard)
	assert.Nil(t, outcome)
	assert.Error(t, err)
}

func TestInvokeFunctionPanic(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.RegisterFunction("panicky", "", func(ctx context.Context, payload json.RawMessage) (any, error) {
		panic("boom")
	}))
	d := newFunctionDispatcher(t, reg)

	outcome, err := d.Invoke(context.Background(), "panicky", nil, Discard)
	assert.Nil(t, outcome)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestInvokeFunctionNilResult(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.RegisterFunction("quiet", "", func(ctx context.Context, payload json.RawMessage) (any, error) {
		return nil, nil
	}))
	d := newFunctionDispatcher(t, reg)

	outcome, err := d.Invoke(context.Background(), "quiet", nil, Discard)
	require.NoError(t, err)
	assert.Nil(t, outcome.Result)
	assert.Nil(t, outcome.Signal)
}

func TestInvokeProcess(t *testing.T) {
	launcher, _ := newTestLauncher(t)
	reg := registry.New()
	require.NoError(t, reg.Register(serviceapi.Descriptor{Name: "echo", Kind: serviceapi.KindProcess}))
	d := NewDispatcher(reg, launcher, zaptest.NewLogger(t))

	sink := &recordingSink{}
	outcome, err := d.Invoke(context.Background(), "echo", json.RawMessage(`{"x":1}`), sink)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, string(outcome.Result))
	assert.NotEmpty(t, sink.logs)
	assert.Zero(t, d.Active())
}
