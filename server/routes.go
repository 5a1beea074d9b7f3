// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

package server

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/shuttlecraft/shuttle/bridge"
	"github.com/shuttlecraft/shuttle/registry"
)

type handlers struct {
	hostCtx    context.Context
	registry   *registry.Registry
	dispatcher *bridge.Dispatcher
	fs         afero.Fs
	logger     *zap.Logger
	version    string
	startedAt  time.Time
}

func newHandlers(ctx context.Context, deps Deps) *handlers {
	return &handlers{
		hostCtx:    ctx,
		registry:   deps.Registry,
		dispatcher: deps.Dispatcher,
		fs:         deps.Fs,
		logger:     deps.Logger,
		version:    deps.Version,
		startedAt:  time.Now(),
	}
}

func echoSetup(e *echo.Echo, h *handlers) {
	e.GET("/ok", basicOk())
	e.GET("/status", h.status)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/services", h.listServices)
	e.POST("/services/:name", h.invoke)
	e.POST("/services/:name/stream", h.stream)
	e.GET("/services/:name", h.websocket)
	e.GET("/services/:name/README.md", h.readme)
}

func basicOk() echo.HandlerFunc {
	return func(c echo.Context) error {
		// Sanity check for probes and UI routing
		return c.JSON(http.StatusOK, "OK")
	}
}

func (h *handlers) listServices(c echo.Context) error {
	return c.JSON(http.StatusOK, h.registry.List()) //nolint:wrapcheck // basic return
}

// readme serves the service's documentation verbatim. Only discovered
// process services have a directory to read from.
func (h *handlers) readme(c echo.Context) error {
	desc, err := h.registry.Lookup(c.Param("name"))
	if err != nil || desc.Dir == "" {
		return c.JSON(http.StatusNotFound, notFoundSignal(c.Param("name")))
	}
	raw, err := afero.ReadFile(h.fs, filepath.Join(desc.Dir, "README.md"))
	if err != nil {
		return c.JSON(http.StatusNotFound, notFoundSignal(c.Param("name")))
	}
	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", raw) //nolint:wrapcheck // basic return
}
