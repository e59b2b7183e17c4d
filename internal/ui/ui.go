package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	HeaderColor  = color.New(color.FgBlue, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	SuccessColor = color.New(color.FgGreen)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed)
	PathColor    = color.New(color.FgYellow)
	AddedColor   = color.New(color.FgGreen)
	RemovedColor = color.New(color.FgRed)
	HunkColor    = color.New(color.FgCyan)
)

// Output receives all status messages. Diagnostics that are the product of a
// command (brace reports, previews) go to stdout instead.
var Output io.Writer = os.Stderr

func Header(format string, a ...interface{}) {
	HeaderColor.Fprintf(Output, format+"\n", a...)
}

func Info(format string, a ...interface{}) {
	InfoColor.Fprintf(Output, format+"\n", a...)
}

func Success(format string, a ...interface{}) {
	SuccessColor.Fprintf(Output, format+"\n", a...)
}

func Warning(format string, a ...interface{}) {
	WarningColor.Fprintf(Output, format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	ErrorColor.Fprintf(Output, format+"\n", a...)
}

func Path(format string, a ...interface{}) {
	PathColor.Fprintf(Output, "  "+format+"\n", a...)
}

// --- Summaries ---

// PrintHoistSummary prints the outcome of a hoist in plain mode.
func PrintHoistSummary(path string, moved []string, insertedAt, replaced int, warnings []string) {
	Header("\n--- Hoist Summary ---")
	if len(moved) == 0 {
		Info("No blocks were moved.")
		return
	}
	Success("Hoisted %d block(s) to line %d:", len(moved), insertedAt+1)
	for _, name := range moved {
		fmt.Fprintf(Output, "  - %s\n", name)
	}
	Success("Replaced %d usage(s).", replaced)
	if path != "" {
		Success("Modified 1 file:")
		Path("- %s", path)
	}
	for _, w := range warnings {
		Warning("%s", w)
	}
}

// PrintRestoreSummary prints the outcome of an undo or redo.
func PrintRestoreSummary(restored, failed []string) {
	Header("\n--- Restore Summary ---")
	if len(restored) > 0 {
		Success("Restored %d file(s):", len(restored))
		for _, f := range restored {
			Path("- %s", f)
		}
	}
	if len(failed) > 0 {
		Error("Failed to restore %d file(s):", len(failed))
		for _, f := range failed {
			Path("- %s", f)
		}
	}
}
