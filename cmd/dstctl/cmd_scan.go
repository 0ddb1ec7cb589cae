//go:build linux

package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/dswarbrick/dstclean/device"
)

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List candidate SATA/SCSI and NVMe devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan()
		},
	}
}

func runScan() error {
	paths, err := device.ScanDevices()
	if err != nil {
		return fmt.Errorf("dstctl: scanning devices: %w", err)
	}
	if len(paths) == 0 {
		fmt.Println("No candidate devices found.")
		return nil
	}

	t := newStyledTable()
	t.AppendHeader(table.Row{"Path", "Kind", "Model", "Serial"})
	for _, path := range paths {
		h, err := device.Open(path)
		if err != nil {
			t.AppendRow(table.Row{path, colorError.Sprint("unreadable"), "-", "-"})
			continue
		}
		v := h.View()
		h.Close()
		t.AppendRow(table.Row{v.Path, v.Kind, v.Model, v.Serial})
	}
	t.Render()
	return nil
}
