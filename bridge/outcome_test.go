// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

package bridge

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalizeOutput(t *testing.T) {
	tests := []struct {
		name       string
		contents   *string
		wantResult string
		wantSignal bool
		wantErr    bool
	}{
		{
			name:     "absent file is success with no result",
			contents: nil,
		},
		{
			name:     "empty file is success with no result",
			contents: ptr(""),
		},
		{
			name:     "whitespace only is success with no result",
			contents: ptr("  \n\t"),
		},
		{
			name:       "plain JSON is the result",
			contents:   ptr(`{"answer":42}`),
			wantResult: `{"answer":42}`,
		},
		{
			name:       "JSON with integral code is a signal",
			contents:   ptr(`{"code":429,"type":"RATE_LIMIT","message":"slow down"}`),
			wantSignal: true,
		},
		{
			name:       "fractional code is an ordinary result",
			contents:   ptr(`{"code":4.5,"message":"not a signal"}`),
			wantResult: `{"code":4.5,"message":"not a signal"}`,
		},
		{
			name:     "non-JSON output is an error",
			contents: ptr("Traceback (most recent call last):"),
			wantErr:  true,
		},
		{
			name:       "scalar JSON is a valid result",
			contents:   ptr(`"done"`),
			wantResult: `"done"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			path := "out/result.output.json"
			if tt.contents != nil {
				require.NoError(t, afero.WriteFile(fs, path, []byte(*tt.contents), 0o600))
			}

			outcome, err := finalizeOutput(fs, path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, outcome)
			if tt.wantSignal {
				assert.NotNil(t, outcome.Signal)
				assert.Nil(t, outcome.Result)
			} else if tt.wantResult != "" {
				assert.JSONEq(t, tt.wantResult, string(outcome.Result))
				assert.Nil(t, outcome.Signal)
			} else {
				assert.Nil(t, outcome.Result)
				assert.Nil(t, outcome.Signal)
			}
		})
	}
}

func TestFinalizeOutputSignalFields(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "x.output.json"
	body := `{"code":429,"type":"RATE_LIMIT","message":"slow down","details":{"retry_after":30}}`
	require.NoError(t, afero.WriteFile(fs, path, []byte(body), 0o600))

	outcome, err := finalizeOutput(fs, path)
	require.NoError(t, err)
	require.NotNil(t, outcome.Signal)
	assert.Equal(t, 429, outcome.Signal.Code)
	assert.Equal(t, "RATE_LIMIT", outcome.Signal.Type)
	assert.Equal(t, "slow down", outcome.Signal.Message)
	assert.NotNil(t, outcome.Signal.Details)
}

func TestExitErrorMessage(t *testing.T) {
	err := &ExitError{Code: 3}
	assert.Equal(t, "worker exited with code 3", err.Error())
}

func ptr(s string) *string { return &s }
