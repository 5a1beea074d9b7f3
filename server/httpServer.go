// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

// Package server exposes the service directory over HTTP: one synchronous,
// one SSE, and one WebSocket adapter per service, all sharing the bridge
// dispatcher, plus listing, documentation, health, and metrics endpoints.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/sync/errgroup"

	"github.com/shuttlecraft/shuttle/bridge"
	"github.com/shuttlecraft/shuttle/config"
	"github.com/shuttlecraft/shuttle/registry"
)

// Deps carries the wired components into the HTTP layer.
type Deps struct {
	Registry   *registry.Registry
	Dispatcher *bridge.Dispatcher
	Config     config.Config
	Logger     *zap.Logger
	Fs         afero.Fs
	Version    string
}

// RunServer starts the HTTP server on the errgroup and returns the echo
// instance so the caller can shut it down gracefully. The server speaks h2c
// so the client SDK's http2 transport can multiplex streams over plaintext.
//
// ctx is the host lifecycle context; workers launched for requests are bound
// to it, not to individual request contexts, so a disconnecting client does
// not kill its worker.
func RunServer(ctx context.Context, grp *errgroup.Group, deps Deps) *echo.Echo {
	e := newHTTPServer(ctx, deps)
	bindAddr := fmt.Sprintf("%s:%d", deps.Config.ListenAddr, deps.Config.Port)

	grp.Go(func() error {
		deps.Logger.Info("starting HTTP server", zap.String("address", bindAddr))
		err := e.StartH2CServer(bindAddr, &http2.Server{})
		// ErrServerClosed is the normal shutdown path; returning it would
		// cancel the whole group on the first shutdown call.
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server unexpected failure")
		}
		return nil
	})

	return e
}

func newHTTPServer(ctx context.Context, deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	useGlobalMiddlewares(e, deps.Logger)

	// Generous timeouts: workers call external model APIs with generation
	// times measured in minutes. WriteTimeout stays zero so SSE and
	// WebSocket streams are never cut mid-invocation.
	e.Server.ReadTimeout = deps.Config.ReadTimeout
	e.Server.WriteTimeout = 0
	e.Server.IdleTimeout = deps.Config.IdleTimeout
	e.Server.ReadHeaderTimeout = 10 * time.Second

	echoSetup(e, newHandlers(ctx, deps))
	return e
}

// NewTestRouter builds a bare router without middlewares or server timeouts.
func NewTestRouter(ctx context.Context, deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	echoSetup(e, newHandlers(ctx, deps))
	return e
}

func useGlobalMiddlewares(e *echo.Echo, logger *zap.Logger) {
	e.Use(
		middleware.RequestID(),
		middleware.Recover(),
		middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			LogURI:     true,
			LogStatus:  true,
			LogMethod:  true,
			LogLatency: true,
			LogError:   true,
			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				if v.Error != nil {
					logger.Error("request failed",
						zap.String("method", v.Method),
						zap.String("uri", v.URI),
						zap.Int("status", v.Status),
						zap.Duration("latency", v.Latency),
						zap.Error(v.Error))
				} else {
					logger.Info("request completed",
						zap.String("method", v.Method),
						zap.String("uri", v.URI),
						zap.Int("status", v.Status),
						zap.Duration("latency", v.Latency))
				}
				return nil
			},
		}),
	)
}
