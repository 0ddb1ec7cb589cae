//go:build linux

package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/dswarbrick/dstclean/device"
	"github.com/dswarbrick/dstclean/dst"
	"github.com/dswarbrick/dstclean/dstlog"
)

var (
	colorHeader  = color.New(color.FgWhite, color.Bold)
	colorSuccess = color.New(color.FgGreen)
	colorError   = color.New(color.FgRed)
	colorWarning = color.New(color.FgYellow)
	colorMuted   = color.New(color.Faint)
)

func newStyledTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)

	style := table.StyleLight
	style.Options.SeparateRows = false
	style.Options.DrawBorder = false
	style.Options.SeparateColumns = true
	style.Format.Header = text.FormatUpper
	style.Format.HeaderAlign = text.AlignLeft
	t.SetStyle(style)

	return t
}

func outcomeBadge(o dst.Outcome) string {
	switch o {
	case dst.Success:
		return colorSuccess.Sprint(o)
	case dst.Aborted, dst.WatchdogAborted:
		return colorWarning.Sprint(o)
	case dst.Failure:
		return colorError.Sprint(o)
	default:
		return colorMuted.Sprint(o)
	}
}

func printDeviceSummary(v device.View) {
	colorHeader.Println("Device")
	fmt.Printf("  Path:     %s\n", v.Path)
	fmt.Printf("  Kind:     %s\n", v.Kind)
	fmt.Printf("  Model:    %s\n", v.Model)
	fmt.Printf("  Serial:   %s\n", v.Serial)
	fmt.Printf("  Firmware: %s\n", v.Firmware)
}

func printDSTLog(log dstlog.Log) {
	colorHeader.Printf("Self-test log (%s, %d entries)\n", log.Type, len(log.Entries))

	t := newStyledTable()
	t.AppendHeader(table.Row{"#", "Kind", "Status", "Hours", "LBA"})
	for i, e := range log.Entries {
		lba := "-"
		if e.LBAOfFailure != dstlog.SentinelLBA {
			lba = fmt.Sprintf("%d", e.LBAOfFailure)
		}
		t.AppendRow(table.Row{i, e.KindField, dst.Status(e.Status), e.Timestamp, lba})
	}
	t.Render()
}
