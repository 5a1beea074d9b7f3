// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

type statusResponse struct {
	Version           string        `json:"version"`
	Uptime            string        `json:"uptime"`
	Goroutines        int           `json:"goroutines"`
	Services          int           `json:"services"`
	ActiveInvocations int64         `json:"active_invocations"`
	Memory            *memoryStatus `json:"memory,omitempty"`
}

type memoryStatus struct {
	TotalMB     uint64  `json:"total_mb"`
	AvailableMB uint64  `json:"available_mb"`
	UsedPercent float64 `json:"used_percent"`
}

func (h *handlers) status(c echo.Context) error {
	resp := statusResponse{
		Version:           h.version,
		Uptime:            time.Since(h.startedAt).Round(time.Second).String(),
		Goroutines:        runtime.NumGoroutine(),
		Services:          h.registry.Len(),
		ActiveInvocations: h.dispatcher.Active(),
	}

	vmStat, err := mem.VirtualMemory()
	if err != nil {
		h.logger.Warn("reading memory stats", zap.Error(err))
	} else {
		resp.Memory = &memoryStatus{
			TotalMB:     vmStat.Total / (1024 * 1024),
			AvailableMB: vmStat.Available / (1024 * 1024),
			UsedPercent: vmStat.UsedPercent,
		}
	}

	return c.JSON(http.StatusOK, resp) //nolint:wrapcheck // basic return
}
