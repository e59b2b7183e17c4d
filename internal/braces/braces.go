package braces

import (
	"fmt"
	"io"
	"strings"

	"github.com/sokinpui/srcfix/internal/parser"
)

// Unclosed is an opening brace left on the stack at the end of the scan.
type Unclosed struct {
	// Index is the character (rune) position of the brace in the text, with
	// "\r\n" counted as one character.
	Index int
	// Offset is the byte position of the brace in the text.
	Offset int
	// Line is the 1-based line number holding the brace.
	Line int
	// Text is the content of that line without its terminator.
	Text string
}

// Report holds the result of a single brace scan.
type Report struct {
	Unclosed []Unclosed
	// Extra holds the character positions of closing braces seen while no
	// opening brace was pending, in scan order.
	Extra []int
}

// Balanced reports whether every brace found a partner.
func (r *Report) Balanced() bool {
	return len(r.Unclosed) == 0 && len(r.Extra) == 0
}

// Scan walks text once, pushing the position of every '{' and popping on
// every '}'. Braces inside strings and comments are counted like any other.
// Positions count "\r\n" as a single line break, as text read with
// universal newlines would.
func Scan(text string) *Report {
	report := &Report{}

	type opening struct{ index, offset int }
	var stack []opening

	index := 0
	var prev rune
	for offset, r := range text {
		if r == '\n' && prev == '\r' {
			prev = r
			continue
		}
		prev = r
		switch r {
		case '{':
			stack = append(stack, opening{index: index, offset: offset})
		case '}':
			if len(stack) == 0 {
				report.Extra = append(report.Extra, index)
			} else {
				stack = stack[:len(stack)-1]
			}
		}
		index++
	}

	for _, o := range stack {
		line, lineText := lineAt(text, o.offset)
		report.Unclosed = append(report.Unclosed, Unclosed{
			Index:  o.index,
			Offset: o.offset,
			Line:   line,
			Text:   lineText,
		})
	}
	return report
}

// lineAt returns the 1-based line number and the text of the line containing
// the byte at offset. "\n", "\r\n" and a lone "\r" each end a line.
func lineAt(text string, offset int) (int, string) {
	prefix := text[:offset]
	line := strings.Count(prefix, "\n") + strings.Count(prefix, "\r") - strings.Count(prefix, "\r\n") + 1
	start := strings.LastIndexAny(prefix, "\r\n") + 1
	end := strings.IndexAny(text[offset:], "\r\n")
	if end < 0 {
		end = len(text)
	} else {
		end += offset
	}
	return line, text[start:end]
}

// Format writes the diagnostics for the report to w.
func (r *Report) Format(w io.Writer) {
	for _, pos := range r.Extra {
		fmt.Fprintf(w, "Extra closing brace at position %d\n", pos)
	}

	if len(r.Unclosed) == 0 {
		if len(r.Extra) == 0 {
			fmt.Fprintln(w, "No brace mismatch found in the entire file.")
		}
		return
	}

	positions := make([]string, len(r.Unclosed))
	for i, u := range r.Unclosed {
		positions[i] = fmt.Sprint(u.Index)
	}
	fmt.Fprintf(w, "Unclosed opening braces at positions: [%s]\n", strings.Join(positions, ", "))
	for _, u := range r.Unclosed {
		fmt.Fprintf(w, "Line %d: %s\n", u.Line, u.Text)
	}
}

// BlockReport is the scan result of one fenced code block of a markdown
// document. Line numbers in Report refer to the markdown document.
type BlockReport struct {
	Block  parser.CodeBlock
	Report *Report
}

// ScanBlocks scans each code block on its own.
func ScanBlocks(blocks []parser.CodeBlock) []BlockReport {
	reports := make([]BlockReport, 0, len(blocks))
	for _, block := range blocks {
		report := Scan(block.Content)
		for i := range report.Unclosed {
			report.Unclosed[i].Line += block.StartLine - 1
		}
		reports = append(reports, BlockReport{Block: block, Report: report})
	}
	return reports
}
