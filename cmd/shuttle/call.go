// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shuttlecraft/shuttle/client"
	"github.com/shuttlecraft/shuttle/serviceapi"
)

var callCmd = &cobra.Command{
	Use:   "call <service>",
	Short: "Invoke a service",
	Long: `Invoke a service with a JSON payload and print its result.

The payload is passed with -d, either inline JSON or @file to read from disk
(@- reads stdin). With --stream the invocation runs over the SSE transport
and worker logs and events are printed as they arrive.`,
	Args: cobra.ExactArgs(1),
	RunE: callCmdRun,
}

var callData string
var callStream = false

func init() {
	callCmd.Flags().StringVarP(&callData, "data", "d", "", "JSON payload, or @file / @- for stdin")
	callCmd.Flags().BoolVar(&callStream, "stream", false, "Stream logs and events while the invocation runs")
	enableQuietFlag(callCmd)
	rootCmd.AddCommand(callCmd)
}

func callCmdRun(cmd *cobra.Command, args []string) error {
	payload, err := resolvePayload(callData)
	if err != nil {
		return err
	}

	if callStream {
		return streamCall(args[0], payload)
	}

	result, err := shuttleClient.Call(ctx, args[0], payload)
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

func resolvePayload(data string) (json.RawMessage, error) {
	switch {
	case data == "":
		return json.RawMessage("null"), nil
	case data == "@-":
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, errors.Wrap(err, "reading payload from stdin")
		}
		return validatePayload(raw)
	case strings.HasPrefix(data, "@"):
		raw, err := os.ReadFile(data[1:])
		if err != nil {
			return nil, errors.Wrapf(err, "reading payload file %s", data[1:])
		}
		return validatePayload(raw)
	default:
		return validatePayload([]byte(data))
	}
}

func validatePayload(raw []byte) (json.RawMessage, error) {
	if !json.Valid(raw) {
		return nil, errors.New("payload is not valid JSON")
	}
	return json.RawMessage(raw), nil
}

func streamCall(service string, payload json.RawMessage) error {
	err := shuttleClient.Stream(ctx, service, payload, func(frame client.Frame) {
		switch frame.Event {
		case serviceapi.EventComplete:
			if !quiet {
				printResult(json.RawMessage(frame.Data))
			}
		case serviceapi.EventError:
			// The terminal error also comes back as the Stream return value.
		case serviceapi.EventLog:
			printLogLine(frame.Data)
		default:
			tprint("%s %s", color.CyanString("[%s]", frame.Event), frame.Data)
		}
	})
	return err
}

func printLogLine(line string) {
	switch {
	case strings.HasPrefix(line, "ERROR:"):
		tprintRaw(color.RedString(line))
	case strings.HasPrefix(line, "WARN:"):
		tprintRaw(color.YellowString(line))
	case strings.HasPrefix(line, "DEBUG:"):
		tprintRaw(color.HiBlackString(line))
	default:
		tprintRaw(line)
	}
}

func printResult(result json.RawMessage) {
	var tree any
	if err := json.Unmarshal(result, &tree); err != nil {
		tprintRaw(string(result))
		return
	}
	outBytes, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		tprintRaw(string(result))
		return
	}
	tprintRaw(string(outBytes))
}
