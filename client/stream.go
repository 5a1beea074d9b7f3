// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/shuttlecraft/shuttle/serviceapi"
)

// Frame is one Server-Sent Event from a streaming invocation. Event is
// "log", "complete", "error", or a custom event type; Data is the raw data
// payload (verbatim text for log frames, JSON otherwise).
type Frame struct {
	Event string
	Data  string
}

// Terminal reports whether the frame ends the stream.
func (f Frame) Terminal() bool {
	return f.Event == serviceapi.EventComplete || f.Event == serviceapi.EventError
}

// Stream invokes a service over the SSE transport and delivers every frame
// to onFrame in emission order, terminal frame included. It returns nil
// after a complete frame; an error frame is returned as a *serviceapi.Signal
// error when the payload parses as one, or a generic error otherwise.
func (c *Client) Stream(ctx context.Context, service string, payload any, onFrame func(Frame)) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encoding payload")
	}
	streamURL := fmt.Sprintf("%s/services/%s/stream", c.baseURL, service)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, streamURL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "connecting to stream")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		if sig, ok := serviceapi.SignalFromRaw(raw); ok {
			return sig
		}
		return errors.Newf("server returned status %d: %s", resp.StatusCode, resp.Status)
	}

	// Frames arrive as "event:" / "data:" line pairs separated by blank
	// lines; a blank line dispatches the assembled frame.
	reader := bufio.NewReader(resp.Body)
	var frame Frame
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return errors.New("stream ended without a terminal frame")
			}
			return errors.Wrap(err, "reading from event stream")
		}
		line = strings.TrimRight(line, "\r\n")

		switch {
		case strings.HasPrefix(line, "event: "):
			frame.Event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			frame.Data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if frame.Event == "" {
				continue // heartbeat or comment
			}
			done, err := dispatchFrame(frame, onFrame)
			if done {
				return err
			}
			frame = Frame{}
		}
	}
}

func dispatchFrame(frame Frame, onFrame func(Frame)) (bool, error) {
	if onFrame != nil {
		onFrame(frame)
	}
	if !frame.Terminal() {
		return false, nil
	}
	if frame.Event == serviceapi.EventError {
		if sig, ok := serviceapi.SignalFromRaw([]byte(frame.Data)); ok {
			return true, sig
		}
		return true, errors.Newf("invocation failed: %s", frame.Data)
	}
	return true, nil
}
