// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

package bridge

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Janitor sweeps the handoff directory for files that outlived their
// invocation, which can happen if the host crashed between spawn and
// cleanup. It complements per-invocation deletion; it never replaces it.
type Janitor struct {
	fs       afero.Fs
	dir      string
	maxAge   time.Duration
	interval time.Duration
	logger   *zap.Logger
}

func NewJanitor(fs afero.Fs, dir string, maxAge, interval time.Duration, logger *zap.Logger) *Janitor {
	return &Janitor{fs: fs, dir: dir, maxAge: maxAge, interval: interval, logger: logger}
}

// Run sweeps once immediately, then on every tick until ctx is done.
func (j *Janitor) Run(ctx context.Context) error {
	j.sweep()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *Janitor) sweep() int {
	entries, err := afero.ReadDir(j.fs, j.dir)
	if err != nil {
		j.logger.Warn("reading handoff dir", zap.Error(err))
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !isHandoffFile(entry.Name()) {
			continue
		}
		if time.Since(entry.ModTime()) < j.maxAge {
			continue
		}
		path := filepath.Join(j.dir, entry.Name())
		if err := j.fs.Remove(path); err != nil {
			j.logger.Warn("removing stale handoff file", zap.String("path", path), zap.Error(err))
			continue
		}
		j.logger.Info("removed stale handoff file", zap.String("path", path))
		removed++
	}
	return removed
}

func isHandoffFile(name string) bool {
	return strings.HasSuffix(name, ".input.json") || strings.HasSuffix(name, ".output.json")
}
