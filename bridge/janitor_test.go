// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

package bridge

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestJanitorSweep(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "data"
	require.NoError(t, fs.MkdirAll(dir, 0o755))

	stale := time.Now().Add(-2 * time.Hour)
	write := func(name string, old bool) {
		path := dir + "/" + name
		require.NoError(t, afero.WriteFile(fs, path, []byte("{}"), 0o600))
		if old {
			require.NoError(t, fs.Chtimes(path, stale, stale))
		}
	}

	write("a.input.json", true)
	write("a.output.json", true)
	write("b.input.json", false)
	write("unrelated.txt", true)
	require.NoError(t, fs.MkdirAll(dir+"/sub.input.json", 0o755))

	j := NewJanitor(fs, dir, time.Hour, time.Minute, zaptest.NewLogger(t))
	assert.Equal(t, 2, j.sweep())

	for name, wantGone := range map[string]bool{
		"a.input.json":  true,
		"a.output.json": true,
		"b.input.json":  false,
		"unrelated.txt": false,
	} {
		exists, err := afero.Exists(fs, dir+"/"+name)
		require.NoError(t, err)
		assert.Equal(t, !wantGone, exists, name)
	}
}

func TestJanitorSweepMissingDir(t *testing.T) {
	j := NewJanitor(afero.NewMemMapFs(), "nope", time.Hour, time.Minute, zaptest.NewLogger(t))
	assert.Equal(t, 0, j.sweep())
}

func TestIsHandoffFile(t *testing.T) {
	assert.True(t, isHandoffFile("abc.input.json"))
	assert.True(t, isHandoffFile("abc.output.json"))
	assert.False(t, isHandoffFile("abc.json"))
	assert.False(t, isHandoffFile("notes.txt"))
}
