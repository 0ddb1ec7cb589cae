//go:build linux

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dswarbrick/dstclean/device"
	"github.com/dswarbrick/dstclean/dst"
)

func newRunCmd(configPath *string) *cobra.Command {
	var (
		kindStr       string
		captive       bool
		abort         bool
		ignoreMaxTime bool
	)

	cmd := &cobra.Command{
		Use:   "run <device>",
		Short: "Start (or abort) a short/long/conveyance self-test and poll it to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), args[0], kindStr, captive, abort, ignoreMaxTime)
		},
	}

	cmd.Flags().StringVar(&kindStr, "kind", "short", "self-test kind: short, long, conveyance")
	cmd.Flags().BoolVar(&captive, "captive", false, "run in captive mode (blocks the device until done)")
	cmd.Flags().BoolVar(&abort, "abort", false, "abort any in-progress self-test instead of starting one")
	cmd.Flags().BoolVar(&ignoreMaxTime, "ignore-max-time", false, "disable the polling watchdog's abort-on-timeout")
	return cmd
}

func parseKind(s string) (dst.Kind, error) {
	switch s {
	case "short":
		return dst.Short, nil
	case "long":
		return dst.Long, nil
	case "conveyance":
		return dst.Conveyance, nil
	default:
		return 0, fmt.Errorf("dstctl: unknown self-test kind %q", s)
	}
}

func runRun(ctx context.Context, path, kindStr string, captive, abort, ignoreMaxTime bool) error {
	h, err := device.Open(path)
	if err != nil {
		return fmt.Errorf("dstctl: %w", err)
	}
	defer h.Close()

	printDeviceSummary(h.View())

	if abort {
		if err := dst.Abort(h.Transport(), h); err != nil {
			return fmt.Errorf("dstctl: aborting self-test: %w", err)
		}
		colorWarning.Println("Self-test abort issued.")
		return nil
	}

	kind, err := parseKind(kindStr)
	if err != nil {
		return err
	}
	mode := dst.Offline
	if captive {
		mode = dst.Captive
	}

	if err := dst.Start(h.Transport(), h, kind, mode); err != nil {
		return fmt.Errorf("dstctl: starting %s self-test: %w", kind, err)
	}
	fmt.Printf("Started %s self-test (%s), polling for completion...\n", kind, modeString(mode))

	outcome, err := dst.Poll(ctx, h.Transport(), kind, ignoreMaxTime)
	fmt.Printf("Result: %s\n", outcomeBadge(outcome))
	if err != nil {
		return fmt.Errorf("dstctl: %w", err)
	}
	return nil
}

func modeString(m dst.Mode) string {
	if m == dst.Captive {
		return "captive"
	}
	return "offline"
}
