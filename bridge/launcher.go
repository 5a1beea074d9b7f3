// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

package bridge

import (
	"context"
	"encoding/json"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/shuttlecraft/shuttle/serviceapi"
)

// LauncherOptions configures worker process invocation.
type LauncherOptions struct {
	// DataDir holds the per-invocation handoff files.
	DataDir string
	// Command is the argv prefix for the worker entrypoint, e.g.
	// ["python3", "entry.py"]. The launcher appends the service name, the
	// input path, the output path, and the callback port.
	Command []string
	// WorkDir is the working directory for worker processes. Empty means
	// inherit the host's.
	WorkDir string
	// CallbackPort is the host's listen port, passed to workers so they can
	// call back into the host.
	CallbackPort int
}

// Launcher runs KindProcess invocations. Each call gets a fresh worker
// process and its own pair of handoff files named by a per-invocation
// correlation id; nothing is shared or reused across invocations.
type Launcher struct {
	fs     afero.Fs
	opts   LauncherOptions
	logger *zap.Logger
}

func NewLauncher(fs afero.Fs, opts LauncherOptions, logger *zap.Logger) *Launcher {
	return &Launcher{fs: fs, opts: opts, logger: logger}
}

// Launch runs one worker process to completion and returns its classified
// outcome. The payload is written to an input handoff file, the worker is
// started with the handoff paths as arguments, its stdout/stderr are
// multiplexed into the sink as they arrive, and on exit the output handoff
// is finalized. Both handoff files are deleted afterward on every path.
//
// ctx should be the host's lifecycle context, not a request context: a
// disconnecting client does not terminate the worker, but host shutdown does.
func (l *Launcher) Launch(ctx context.Context, desc serviceapi.Descriptor, payload json.RawMessage, sink Sink) (*Outcome, error) {
	if desc.Kind != serviceapi.KindProcess {
		return nil, errors.Newf("service %s is not a process service", desc.Name)
	}
	if sink == nil {
		sink = Discard
	}
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}

	id := uuid.NewString()
	inputPath := filepath.Join(l.opts.DataDir, id+".input.json")
	outputPath := filepath.Join(l.opts.DataDir, id+".output.json")
	logger := l.logger.With(zap.String("service", desc.Name), zap.String("invocation", id))

	if err := afero.WriteFile(l.fs, inputPath, payload, 0o600); err != nil {
		return nil, errors.Wrap(err, "writing input handoff")
	}
	if err := afero.WriteFile(l.fs, outputPath, nil, 0o600); err != nil {
		l.removeHandoff(logger, inputPath)
		return nil, errors.Wrap(err, "creating output handoff")
	}
	defer func() {
		l.removeHandoff(logger, inputPath)
		l.removeHandoff(logger, outputPath)
	}()

	argv := append(append([]string{}, l.opts.Command...),
		desc.Name, inputPath, outputPath, strconv.Itoa(l.opts.CallbackPort))
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = l.opts.WorkDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "attaching worker stdout")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(err, "attaching worker stderr")
	}

	logger.Info("starting worker", zap.Strings("argv", argv))
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "starting worker for %s", desc.Name)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		muxStdout(stdout, sink, logger)
	}()
	go func() {
		defer wg.Done()
		muxStderr(stderr, sink, logger)
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			logger.Warn("worker exited abnormally", zap.Int("code", code))
			return nil, &ExitError{Code: code}
		}
		return nil, errors.Wrap(err, "waiting on worker")
	}

	outcome, err := finalizeOutput(l.fs, outputPath)
	if err != nil {
		return nil, err
	}
	logger.Info("worker completed",
		zap.Bool("signaled", outcome.Signal != nil),
		zap.Int("result_bytes", len(outcome.Result)))
	return outcome, nil
}

// Deletion failures are logged, never fatal: a leaked handoff file must not
// fail an otherwise successful invocation. The janitor catches leftovers.
func (l *Launcher) removeHandoff(logger *zap.Logger, path string) {
	if err := l.fs.Remove(path); err != nil {
		logger.Warn("removing handoff file", zap.String("path", path), zap.Error(err))
	}
}
