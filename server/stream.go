// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/shuttlecraft/shuttle/bridge"
	"github.com/shuttlecraft/shuttle/registry"
	"github.com/shuttlecraft/shuttle/serviceapi"
)

// stream is the SSE adapter: every log line and custom event becomes a frame
// as it occurs, and exactly one terminal frame (complete or error) closes
// the stream. The worker keeps running if the client disconnects; writes to
// a gone client degrade to no-ops and the result is discarded.
func (h *handlers) stream(c echo.Context) error {
	name := c.Param("name")
	payload, perr := readPayload(c)
	if perr != nil {
		return c.JSON(http.StatusBadRequest, badRequestSignal())
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	w := &sseWriter{res: res, reqCtx: c.Request().Context()}
	sink := bridge.Callbacks{
		OnLog: func(line string) {
			w.send(serviceapi.EventLog, []byte(line))
		},
		OnEvent: func(eventType string, eventPayload any) {
			data, err := json.Marshal(eventPayload)
			if err != nil {
				data = []byte("null")
			}
			w.send(eventType, data)
		},
	}

	outcome, err := h.dispatcher.Invoke(h.hostCtx, name, payload, sink)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		w.sendJSON(serviceapi.EventError, notFoundSignal(name))
	case err != nil:
		h.logger.Error("invocation failed", zap.String("service", name), zap.Error(err))
		w.sendJSON(serviceapi.EventError, internalSignal())
	case outcome.Signal != nil:
		w.sendJSON(serviceapi.EventError, outcome.Signal)
	default:
		data := outcome.Result
		if data == nil {
			data = []byte("null")
		}
		w.send(serviceapi.EventComplete, data)
	}
	return nil
}

// sseWriter serializes frame writes from the pipe-drain goroutines and the
// handler goroutine, and latches closed on the first failed write or client
// disconnect so later writes are no-ops instead of panics.
type sseWriter struct {
	mu     sync.Mutex
	res    *echo.Response
	reqCtx context.Context
	closed bool
}

func (w *sseWriter) send(event string, data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.reqCtx.Err() != nil {
		w.closed = true
		return
	}
	if _, err := fmt.Fprintf(w.res, "event: %s\ndata: %s\n\n", event, data); err != nil {
		w.closed = true
		return
	}
	w.res.Flush()
}

func (w *sseWriter) sendJSON(event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte("null")
	}
	w.send(event, data)
}
