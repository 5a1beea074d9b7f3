// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe <service>",
	Short: "Show a service's documentation",
	Long:  `Fetch a service's README from the host and render it for the terminal.`,
	Args:  cobra.ExactArgs(1),
	RunE:  describeCmdRun,
}

var describeRaw = false

func init() {
	describeCmd.Flags().BoolVar(&describeRaw, "raw", false, "Print raw markdown without rendering")
	rootCmd.AddCommand(describeCmd)
}

func describeCmdRun(cmd *cobra.Command, args []string) error {
	content, err := shuttleClient.Readme(ctx, args[0])
	if err != nil {
		return err
	}

	if describeRaw {
		tprintRaw(content)
		return nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		// Fallback to raw markdown if glamour fails
		tprintRaw(content)
		return nil
	}
	formatted, err := renderer.Render(content)
	if err != nil {
		// Fallback to raw markdown if rendering fails
		tprintRaw(content)
		return nil
	}
	tprintRaw(formatted)
	return nil
}
