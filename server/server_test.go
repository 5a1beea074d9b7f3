// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

package server

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/shuttlecraft/shuttle/bridge"
	"github.com/shuttlecraft/shuttle/config"
	"github.com/shuttlecraft/shuttle/registry"
	"github.com/shuttlecraft/shuttle/serviceapi"
)

// The shell script plays the worker role: same argv contract, canned
// behaviors keyed by service name.
const testWorkerScript = `#!/bin/sh
service="$1"; input="$2"; output="$3"; port="$4"
case "$service" in
  echo)
    echo "INFO: handling request"
    cp "$input" "$output"
    ;;
  progress)
    echo "INFO: step one"
    echo "EVENT:progress:{\"percent\":50}"
    echo "INFO: step two"
    printf '{"done":true}' > "$output"
    ;;
  silent)
    ;;
  crash)
    exit 3
    ;;
  rate_limit)
    printf '{"code":429,"type":"RATE_LIMIT","message":"slow down"}' > "$output"
    ;;
  odd_code)
    printf '{"code":7000,"type":"VENDOR_SPECIFIC","message":"worker used a non-HTTP code"}' > "$output"
    ;;
  slow)
    echo "INFO: first"
    sleep 1
    echo "INFO: after the client left"
    printf '{"done":true}' > "$output"
    touch "$(dirname "$output")/slow.done"
    ;;
esac
`

func newTestRouter(t *testing.T) *echo.Echo {
	t.Helper()
	router, _ := newTestEnv(t)
	return router
}

// newTestEnv also exposes the handoff data dir so tests can observe worker
// side effects that outlive the request.
func newTestEnv(t *testing.T) (*echo.Echo, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("worker scripts require a POSIX shell")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "worker.sh")
	require.NoError(t, os.WriteFile(script, []byte(testWorkerScript), 0o755))
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))

	fs := afero.NewOsFs()
	logger := zaptest.NewLogger(t)

	reg := registry.New()
	for _, name := range []string{"echo", "progress", "silent", "crash", "rate_limit", "odd_code", "slow"} {
		require.NoError(t, reg.Register(serviceapi.Descriptor{Name: name, Kind: serviceapi.KindProcess}))
	}
	require.NoError(t, reg.RegisterFunction("double", "Doubles n", func(ctx context.Context, payload json.RawMessage) (any, error) {
		var in struct {
			N int `json:"n"`
		}
		if err := json.Unmarshal(payload, &in); err != nil {
			return nil, err
		}
		return map[string]int{"n": in.N * 2}, nil
	}))

	docDir := filepath.Join(dir, "documented")
	require.NoError(t, os.MkdirAll(docDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docDir, "README.md"), []byte("# Documented\n\nHas docs.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docDir, "documented.py"), nil, 0o644))
	require.NoError(t, reg.Register(serviceapi.Descriptor{
		Name: "documented",
		Kind: serviceapi.KindProcess,
		Dir:  docDir,
	}))

	launcher := bridge.NewLauncher(fs, bridge.LauncherOptions{
		DataDir:      dataDir,
		Command:      []string{"/bin/sh", script},
		CallbackPort: 3000,
	}, logger)
	dispatcher := bridge.NewDispatcher(reg, launcher, logger)

	return NewTestRouter(context.Background(), Deps{
		Registry:   reg,
		Dispatcher: dispatcher,
		Config:     config.Default(),
		Logger:     logger,
		Fs:         fs,
		Version:    "test",
	}), dataDir
}
