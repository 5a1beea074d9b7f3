// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show host status",
	Args:  cobra.ExactArgs(0),
	RunE:  statusCmdRun,
}

func init() {
	enableJsonFlag(statusCmd)
	rootCmd.AddCommand(statusCmd)
}

func statusCmdRun(cmd *cobra.Command, args []string) error {
	status, err := shuttleClient.Status(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		outBytes, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return err
		}
		tprintRaw(string(outBytes))
		return nil
	}

	keys := make([]string, 0, len(status))
	for key := range status {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	view := detailView()
	view.SetHeader([]string{"Field", "Value"})
	for _, key := range keys {
		view.Append([]string{key, statusValue(status[key])})
	}
	view.Render()
	return nil
}

func statusValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return fmt.Sprintf("%g", val)
	default:
		outBytes, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(outBytes)
	}
}
