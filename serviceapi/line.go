// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

package serviceapi

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Channel classifies one line of worker stdout.
type Channel string

const (
	// ChannelLog lines carry a log-level prefix and are forwarded verbatim.
	ChannelLog Channel = "log"
	// ChannelEvent lines carry a typed payload emitted with the EVENT: prefix.
	ChannelEvent Channel = "event"
)

// Line is one classified unit of worker output. Exactly one of the log fields
// (Level, Text) or the event fields (Type, Payload) is populated, selected by
// Channel.
type Line struct {
	Channel Channel

	// Log lines. Text is the verbatim line including the level prefix.
	Level string
	Text  string

	// Event lines. Payload is JSON-decoded on a best-effort basis and falls
	// back to the raw string when the payload is not valid JSON.
	Type    string
	Payload any
}

var logPrefix = regexp.MustCompile(`^(INFO|DEBUG|ERROR|WARN):`)

const eventPrefix = "EVENT:"

// ParseLine classifies one line of worker stdout. The second return value is
// false for lines that match neither the log nor the event protocol; those
// reach only the host's own log, never a caller's callbacks.
func ParseLine(s string) (Line, bool) {
	if m := logPrefix.FindStringSubmatch(s); m != nil {
		return Line{Channel: ChannelLog, Level: m[1], Text: s}, true
	}
	if strings.HasPrefix(s, eventPrefix) {
		parts := strings.SplitN(s, ":", 3)
		if len(parts) != 3 {
			return Line{}, false
		}
		line := Line{Channel: ChannelEvent, Type: parts[1]}
		var payload any
		if err := json.Unmarshal([]byte(parts[2]), &payload); err != nil {
			line.Payload = parts[2]
		} else {
			line.Payload = payload
		}
		return line, true
	}
	return Line{}, false
}
