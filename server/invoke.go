// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/shuttlecraft/shuttle/bridge"
	"github.com/shuttlecraft/shuttle/registry"
	"github.com/shuttlecraft/shuttle/serviceapi"
)

// invoke is the synchronous adapter: run the worker to completion with no
// live feedback, then render the outcome as one JSON response. A Signal
// passes through verbatim with its own status code; everything else that
// goes wrong is a generic 500. A signal code outside the HTTP status range
// rides a 500 status line, body still verbatim, since WriteHeader panics on
// codes it cannot encode.
func (h *handlers) invoke(c echo.Context) error {
	name := c.Param("name")
	payload, perr := readPayload(c)
	if perr != nil {
		return c.JSON(http.StatusBadRequest, badRequestSignal())
	}

	outcome, err := h.dispatcher.Invoke(h.hostCtx, name, payload, bridge.Discard)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return c.JSON(http.StatusNotFound, notFoundSignal(name))
		}
		h.logger.Error("invocation failed", zap.String("service", name), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, internalSignal())
	}
	if outcome.Signal != nil {
		status := outcome.Signal.Code
		if status < 100 || status > 599 {
			h.logger.Warn("signal code is not a usable HTTP status",
				zap.String("service", name), zap.Int("code", status))
			status = http.StatusInternalServerError
		}
		return c.JSON(status, outcome.Signal)
	}
	if outcome.Result == nil {
		return c.JSONBlob(http.StatusOK, []byte("null")) //nolint:wrapcheck // basic return
	}
	return c.JSONBlob(http.StatusOK, outcome.Result) //nolint:wrapcheck // basic return
}

// readPayload reads the request body as opaque JSON. An empty body becomes
// null; anything non-empty must at least be valid JSON.
func readPayload(c echo.Context) (json.RawMessage, error) {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading request body")
	}
	if len(raw) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(raw) {
		return nil, errors.New("request body is not valid JSON")
	}
	return raw, nil
}

func notFoundSignal(name string) *serviceapi.Signal {
	return &serviceapi.Signal{
		Code:    http.StatusNotFound,
		Type:    "NOT_FOUND",
		Message: "no service named " + name,
	}
}

func badRequestSignal() *serviceapi.Signal {
	return &serviceapi.Signal{
		Code:    http.StatusBadRequest,
		Type:    "BAD_REQUEST",
		Message: "request body must be JSON",
	}
}

// internalSignal is the generic body for crashes, nonzero exits, malformed
// worker output, and handoff failures. The cause goes to the host log, not
// to the client.
func internalSignal() *serviceapi.Signal {
	return &serviceapi.Signal{
		Code:    http.StatusInternalServerError,
		Type:    "INTERNAL_ERROR",
		Message: "service invocation failed",
	}
}
