// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/shuttlecraft/shuttle/serviceapi"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List services registered on the host",
	Args:  cobra.ExactArgs(0),
	RunE:  listCmdRun,
}

var names = false

func init() {
	enableJsonFlag(listCmd)
	enableQuietFlag(listCmd)
	listCmd.Flags().BoolVar(&names, "names", false, "Only output names, suppressing default output")
	rootCmd.AddCommand(listCmd)
}

func listCmdRun(cmd *cobra.Command, args []string) error {
	services, err := shuttleClient.Services(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		outBytes, err := json.MarshalIndent(services, "", "  ")
		if err != nil {
			return err
		}
		tprintRaw(string(outBytes))
		return nil
	}
	if names {
		table := tableView()
		for _, svc := range services {
			table.Append([]string{svc.Name})
		}
		table.Render()
		return nil
	}
	if quiet {
		return nil
	}

	displayServiceList(services)
	return nil
}

func displayServiceList(services []serviceapi.Descriptor) {
	table := tableView()
	table.SetHeader([]string{"Name", "Kind", "Description"})
	for _, svc := range services {
		table.Append([]string{svc.Name, string(svc.Kind), svc.Description})
	}
	table.Render()
}
