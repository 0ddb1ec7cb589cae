//go:build linux

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dswarbrick/dstclean/device"
)

func newLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log <device>",
		Short: "Print a device's self-test log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(args[0])
		},
	}
}

func runLog(path string) error {
	h, err := device.Open(path)
	if err != nil {
		return fmt.Errorf("dstctl: %w", err)
	}
	defer h.Close()

	printDeviceSummary(h.View())

	log, err := h.ReadDSTLog()
	if err != nil {
		return fmt.Errorf("dstctl: reading self-test log: %w", err)
	}
	printDSTLog(log)
	return nil
}
