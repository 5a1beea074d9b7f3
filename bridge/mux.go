// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

package bridge

import (
	"bufio"
	"io"

	"go.uber.org/zap"

	"github.com/shuttlecraft/shuttle/serviceapi"
)

// Workers can print long model outputs on a single line.
const maxLineBytes = 1 << 20

// muxStdout drains a worker's stdout line by line, classifying each line and
// dispatching it immediately. Log lines reach the sink verbatim and mirror
// into the host log at the level named by their prefix; event lines reach the
// sink as (type, payload); anything else mirrors into the host log only.
// Lines are dispatched in receipt order with no buffering beyond line
// assembly, which is what makes live streaming to clients meaningful.
func muxStdout(r io.Reader, sink Sink, logger *zap.Logger) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		text := sc.Text()
		line, ok := serviceapi.ParseLine(text)
		if !ok {
			logger.Info("worker output", zap.String("line", text))
			continue
		}
		switch line.Channel {
		case serviceapi.ChannelLog:
			mirrorLog(logger, line)
			sink.Log(line.Text)
		case serviceapi.ChannelEvent:
			logger.Debug("worker event", zap.String("type", line.Type))
			sink.Event(line.Type, line.Payload)
		}
	}
	if err := sc.Err(); err != nil {
		logger.Warn("reading worker stdout", zap.Error(err))
	}
}

// muxStderr drains a worker's stderr. Every line is loggable regardless of
// prefix: crash diagnostics have no guaranteed format, and callers retain
// visibility into them even when the worker dies.
func muxStderr(r io.Reader, sink Sink, logger *zap.Logger) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		text := sc.Text()
		logger.Error("worker stderr", zap.String("line", text))
		sink.Log(text)
	}
	if err := sc.Err(); err != nil {
		logger.Warn("reading worker stderr", zap.Error(err))
	}
}

func mirrorLog(logger *zap.Logger, line serviceapi.Line) {
	switch line.Level {
	case "DEBUG":
		logger.Debug("worker log", zap.String("line", line.Text))
	case "WARN":
		logger.Warn("worker log", zap.String("line", line.Text))
	case "ERROR":
		logger.Error("worker log", zap.String("line", line.Text))
	default:
		logger.Info("worker log", zap.String("line", line.Text))
	}
}
