// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

package serviceapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		in   string
		ok   bool
		want Line
	}{
		{
			name: "info log",
			in:   "INFO: starting up",
			ok:   true,
			want: Line{Channel: ChannelLog, Level: "INFO", Text: "INFO: starting up"},
		},
		{
			name: "debug log",
			in:   "DEBUG:details",
			ok:   true,
			want: Line{Channel: ChannelLog, Level: "DEBUG", Text: "DEBUG:details"},
		},
		{
			name: "warn log",
			in:   "WARN: careful",
			ok:   true,
			want: Line{Channel: ChannelLog, Level: "WARN", Text: "WARN: careful"},
		},
		{
			name: "error log",
			in:   "ERROR: it broke",
			ok:   true,
			want: Line{Channel: ChannelLog, Level: "ERROR", Text: "ERROR: it broke"},
		},
		{
			name: "level must be a prefix",
			in:   "something INFO: nope",
			ok:   false,
		},
		{
			name: "json event",
			in:   `EVENT:progress:{"pct":50}`,
			ok:   true,
			want: Line{Channel: ChannelEvent, Type: "progress", Payload: map[string]any{"pct": float64(50)}},
		},
		{
			name: "event payload containing colons stays intact",
			in:   `EVENT:status:{"url":"http://x:80"}`,
			ok:   true,
			want: Line{Channel: ChannelEvent, Type: "status", Payload: map[string]any{"url": "http://x:80"}},
		},
		{
			name: "malformed event payload degrades to string",
			in:   "EVENT:progress:not-json",
			ok:   true,
			want: Line{Channel: ChannelEvent, Type: "progress", Payload: "not-json"},
		},
		{
			name: "event missing payload part",
			in:   "EVENT:progress",
			ok:   false,
		},
		{
			name: "plain output",
			in:   "just some text",
			ok:   false,
		},
		{
			name: "empty line",
			in:   "",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLine(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSignalFromRaw(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
		want *Signal
	}{
		{
			name: "rate limit signal",
			raw:  `{"code":429,"type":"RATE_LIMIT","message":"Rate limit exceeded, please try again later","details":{"retry_after":60}}`,
			ok:   true,
			want: &Signal{Code: 429, Type: "RATE_LIMIT", Message: "Rate limit exceeded, please try again later", Details: map[string]any{"retry_after": float64(60)}},
		},
		{
			name: "signal without details",
			raw:  `{"code":400,"type":"BAD_REQUEST","message":"missing field"}`,
			ok:   true,
			want: &Signal{Code: 400, Type: "BAD_REQUEST", Message: "missing field"},
		},
		{
			name: "plain result is not a signal",
			raw:  `{"x":1}`,
			ok:   false,
		},
		{
			name: "string code is not a signal",
			raw:  `{"code":"429","type":"RATE_LIMIT"}`,
			ok:   false,
		},
		{
			name: "fractional code is not a signal",
			raw:  `{"code":42.9}`,
			ok:   false,
		},
		{
			name: "array is not a signal",
			raw:  `[{"code":500}]`,
			ok:   false,
		},
		{
			name: "scalar is not a signal",
			raw:  `3`,
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SignalFromRaw([]byte(tt.raw))
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSignalError(t *testing.T) {
	sig := &Signal{Code: 429, Type: "RATE_LIMIT", Message: "slow down"}
	assert.Equal(t, "RATE_LIMIT (429): slow down", sig.Error())
}
