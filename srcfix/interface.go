package srcfix

import (
	"fmt"

	"github.com/sokinpui/srcfix/internal/braces"
	"github.com/sokinpui/srcfix/internal/fs"
	"github.com/sokinpui/srcfix/internal/hoist"
)

type (
	// BraceReport lists unmatched braces found by CheckBraces.
	BraceReport = braces.Report

	// Plan describes a hoist; see Hoist.
	Plan  = hoist.Plan
	Block = hoist.Block
	Usage = hoist.Usage

	// HoistResult describes a rewritten file.
	HoistResult = hoist.Result
)

// CheckBraces scans content for unmatched '{' and '}'.
func CheckBraces(content string) *BraceReport {
	return braces.Scan(content)
}

// Hoist rewrites the file at path in place according to plan.
// plan.Target is ignored.
func Hoist(path string, plan *Plan) (*HoistResult, error) {
	lines, err := fs.ReadLines(path)
	if err != nil {
		return nil, err
	}
	res, err := hoist.Apply(lines, plan)
	if err != nil {
		return nil, fmt.Errorf("failed to hoist blocks in '%s': %w", path, err)
	}
	if err := fs.WriteLines(path, res.Lines); err != nil {
		return nil, err
	}
	return res, nil
}
