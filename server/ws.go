// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/alitto/pond"
	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/shuttlecraft/shuttle/bridge"
	"github.com/shuttlecraft/shuttle/registry"
	"github.com/shuttlecraft/shuttle/serviceapi"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// websocket is the bidirectional adapter. Opening the socket starts nothing;
// work begins on a start message. A socket may carry sequential start
// messages; a single-worker pool serializes them so one invocation's frames
// never interleave with another's, even if a client erroneously sends
// concurrent starts.
func (h *handlers) websocket(c echo.Context) error {
	name := c.Param("name")
	if _, err := h.registry.Lookup(name); err != nil {
		return c.JSON(http.StatusNotFound, notFoundSignal(name))
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("service", name), zap.Error(err))
		return nil
	}
	defer conn.Close()

	h.runSocket(conn, name)
	return nil
}

func (h *handlers) runSocket(conn *websocket.Conn, name string) {
	pool := pond.New(1, 16)
	defer pool.StopAndWait()

	sender := &wsSender{conn: conn}
	logger := h.logger.With(zap.String("service", name), zap.String("remote", conn.RemoteAddr().String()))
	logger.Info("websocket session opened")

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Info("websocket session closed", zap.Error(err))
			return
		}
		var in serviceapi.EventMessage
		if err := json.Unmarshal(msg, &in); err != nil {
			logger.Warn("ignoring malformed websocket frame", zap.Error(err))
			continue
		}
		if in.Event != serviceapi.EventStart {
			logger.Warn("ignoring unexpected websocket event", zap.String("event", in.Event))
			continue
		}
		payload := in.Data
		pool.Submit(func() {
			h.runSocketInvocation(sender, logger, name, payload)
		})
	}
}

func (h *handlers) runSocketInvocation(sender *wsSender, logger *zap.Logger, name string, payload json.RawMessage) {
	sink := bridge.Callbacks{
		OnLog: func(line string) {
			sender.send(serviceapi.EventMessage{Event: serviceapi.EventLog, Data: marshalRaw(line)})
		},
		OnEvent: func(eventType string, eventPayload any) {
			sender.send(serviceapi.EventMessage{Event: serviceapi.EventEvent, Type: eventType, Data: marshalRaw(eventPayload)})
		},
	}

	outcome, err := h.dispatcher.Invoke(h.hostCtx, name, payload, sink)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		sender.send(serviceapi.EventMessage{Event: serviceapi.EventError, Data: marshalRaw(notFoundSignal(name))})
	case err != nil:
		logger.Error("invocation failed", zap.Error(err))
		sender.send(serviceapi.EventMessage{Event: serviceapi.EventError, Data: marshalRaw(internalSignal())})
	case outcome.Signal != nil:
		sender.send(serviceapi.EventMessage{Event: serviceapi.EventError, Data: marshalRaw(outcome.Signal)})
	default:
		data := outcome.Result
		if data == nil {
			data = []byte("null")
		}
		sender.send(serviceapi.EventMessage{Event: serviceapi.EventComplete, Data: data})
	}
}

func marshalRaw(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}

// wsSender guards the connection against concurrent writes from the
// pipe-drain goroutines and latches closed after the first write failure.
type wsSender struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func (s *wsSender) send(msg serviceapi.EventMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		s.closed = true
	}
}
