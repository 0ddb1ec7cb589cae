//go:build linux

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dswarbrick/dstclean/clean"
	"github.com/dswarbrick/dstclean/config"
	"github.com/dswarbrick/dstclean/device"
)

func newCleanCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean <device>",
		Short: "Run the DST-and-clean loop: find bad sectors via self-test, repair them, verify",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd.Context(), args[0], *configPath)
		},
	}
	return cmd
}

func runClean(ctx context.Context, path, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("dstctl: %w", err)
	}

	h, err := device.Open(path)
	if err != nil {
		return fmt.Errorf("dstctl: %w", err)
	}
	defer h.Close()

	printDeviceSummary(h.View())
	fmt.Printf("Error budget: %d, auto read-realloc: %v, auto write-realloc: %v, force passthrough: %v\n",
		cfg.ErrorLimit, cfg.AutoReadRealloc, cfg.AutoWriteRealloc, cfg.ForcePassthrough)

	res, err := clean.Run(ctx, h, cfg)

	fmt.Printf("Outcome: %s\n", outcomeBadge(res.Outcome))
	if res.Errors.Len() > 0 {
		res.Errors.Render(os.Stdout)
	}
	if err != nil {
		return fmt.Errorf("dstctl: %w", err)
	}
	return nil
}
