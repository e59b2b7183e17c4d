package hoist

import (
	"fmt"
	"sort"
	"strings"
)

// Result describes the rewritten file.
type Result struct {
	// Lines is the new file content, one element per line with terminators kept.
	Lines []string
	// Moved lists the names of the hoisted blocks in insertion order.
	Moved []string
	// InsertedAt is the line index where the first hoisted block now starts.
	InsertedAt int
	// Replaced counts usage substrings replaced across the file.
	Replaced int
	// MissingSignatures lists blocks whose first line did not contain their signature.
	MissingSignatures []string
	// UnusedUsages lists usage strings that matched no line.
	UnusedUsages []string
}

// Dedent strips one leading unit from every line that starts with it.
// Lines without the prefix are left as they are.
func Dedent(lines []string, unit string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = strings.TrimPrefix(line, unit)
	}
	return out
}

// RewriteSignature splices an explicit destructured parameter list into the
// first empty parameter list of sig: "const X = () => {" becomes
// "const X = ({ a, b }) => {". A signature without "()" is returned unchanged.
func RewriteSignature(sig string, params []string) string {
	if len(params) == 0 {
		return sig
	}
	return strings.Replace(sig, "()", "({ "+strings.Join(params, ", ")+" })", 1)
}

// UsageFor builds the rewrite of a self-closing element "<Name />" into one
// passing every parameter through as a prop of the same name.
func UsageFor(name string, params []string) Usage {
	props := make([]string, len(params))
	for i, p := range params {
		props[i] = fmt.Sprintf("%s={%s}", p, p)
	}
	newTag := "<" + name + " />"
	if len(props) > 0 {
		newTag = "<" + name + " " + strings.Join(props, " ") + " />"
	}
	return Usage{Old: "<" + name + " />", New: newTag}
}

// Validate checks the block ranges against a file of n lines. Ranges must be
// inside the file, not inverted and not overlapping.
func (p *Plan) Validate(n int) error {
	if len(p.Blocks) == 0 {
		return fmt.Errorf("plan has no blocks")
	}
	sorted := make([]Block, len(p.Blocks))
	copy(sorted, p.Blocks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	for i, b := range sorted {
		if b.Start < 0 || b.End < b.Start {
			return fmt.Errorf("block %q: invalid range [%d, %d]", b.Name, b.Start, b.End)
		}
		if b.End >= n {
			return fmt.Errorf("block %q: range [%d, %d] is outside a file of %d lines", b.Name, b.Start, b.End, n)
		}
		if i > 0 && b.Start <= sorted[i-1].End {
			return fmt.Errorf("block %q overlaps block %q", b.Name, sorted[i-1].Name)
		}
	}
	return nil
}

// Apply moves the plan's blocks out of lines, dedents them, rewrites their
// signatures and inserts them together at the plan's insertion point, then
// rewrites usage lines. lines is not modified.
func Apply(lines []string, plan *Plan) (*Result, error) {
	if err := plan.Validate(len(lines)); err != nil {
		return nil, err
	}

	removed := make([]bool, len(lines))
	for _, b := range plan.Blocks {
		for i := b.Start; i <= b.End; i++ {
			removed[i] = true
		}
	}
	remaining := make([]string, 0, len(lines))
	for i, line := range lines {
		if !removed[i] {
			remaining = append(remaining, line)
		}
	}

	res := &Result{}
	eol := lineEnding(lines)

	var hoisted []string
	for _, b := range plan.Blocks {
		block := Dedent(lines[b.Start:b.End+1], plan.indent())
		if b.Signature != "" && len(b.Params) > 0 {
			if strings.Contains(block[0], b.Signature) {
				block[0] = strings.ReplaceAll(block[0], b.Signature, RewriteSignature(b.Signature, b.Params))
			} else {
				res.MissingSignatures = append(res.MissingSignatures, b.Name)
			}
		}
		hoisted = append(hoisted, block...)
		if plan.Separator {
			hoisted = append(hoisted, eol)
		}
		res.Moved = append(res.Moved, b.Name)
	}

	pos := plan.InsertAt
	if plan.InsertAnchor != "" {
		for i, line := range remaining {
			if strings.Contains(line, plan.InsertAnchor) {
				pos = i
				break
			}
		}
	}
	pos = max(0, min(pos, len(remaining)))
	res.InsertedAt = pos

	final := make([]string, 0, len(remaining)+len(hoisted))
	final = append(final, remaining[:pos]...)
	final = append(final, hoisted...)
	final = append(final, remaining[pos:]...)
	for i := 0; eol != "" && i < len(final)-1; i++ {
		if !strings.HasSuffix(final[i], "\n") {
			final[i] += eol
		}
	}

	usages := plan.AllUsages()
	used := make([]bool, len(usages))
	for i, line := range final {
		for j, u := range usages {
			if u.Old == "" || !strings.Contains(line, u.Old) {
				continue
			}
			res.Replaced += strings.Count(line, u.Old)
			final[i] = strings.ReplaceAll(line, u.Old, u.New)
			used[j] = true
			break
		}
	}
	for j, u := range usages {
		if !used[j] {
			res.UnusedUsages = append(res.UnusedUsages, u.Old)
		}
	}

	res.Lines = final
	return res, nil
}

// lineEnding returns the terminator of the first terminated line. Lines
// held without terminators give "".
func lineEnding(lines []string) string {
	for _, line := range lines {
		if strings.HasSuffix(line, "\r\n") {
			return "\r\n"
		}
		if strings.HasSuffix(line, "\n") {
			return "\n"
		}
	}
	return ""
}
