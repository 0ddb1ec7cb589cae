package repair

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

var (
	colorHeader  = color.New(color.FgWhite, color.Bold)
	colorSuccess = color.New(color.FgGreen)
	colorError   = color.New(color.FgRed)
	colorWarning = color.New(color.FgYellow)
	colorMuted   = color.New(color.Faint)
)

func statusBadge(s Status) string {
	switch s {
	case Repaired, RepairNotRequired:
		return colorSuccess.Sprint(s)
	case UnableToRepairAccessDenied:
		return colorWarning.Sprint(s)
	case RepairFailed:
		return colorError.Sprint(s)
	default:
		return colorMuted.Sprint(s)
	}
}

func newStyledTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	style := table.StyleLight
	style.Options.SeparateRows = false
	style.Options.DrawBorder = false
	style.Options.SeparateColumns = true
	style.Format.Header = text.FormatUpper
	style.Format.HeaderAlign = text.AlignLeft
	t.SetStyle(style)

	return t
}

// Render writes a styled table of every entry in the list, spec.md §4.6's
// "print_LBA_Error_List" supplemented feature (original_source's plain
// print becomes a colored table here), followed by a footnote when any
// entry was denied access.
func (l *ErrorList) Render(w io.Writer) {
	colorHeader.Fprintln(w, "Repaired / unrepaired LBAs")

	t := newStyledTable(w)
	t.AppendHeader(table.Row{"LBA", "Status"})
	for _, e := range l.entries {
		t.AppendRow(table.Row{fmt.Sprintf("%d", e.LBA), statusBadge(e.Status)})
	}
	t.Render()

	if l.CountByStatus(UnableToRepairAccessDenied) > 0 {
		colorWarning.Fprintln(w, "Note: the OS denied access while repairing at least one LBA; rerun with elevated privileges (root or CAP_SYS_RAWIO).")
	}
}
