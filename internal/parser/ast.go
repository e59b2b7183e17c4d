package parser

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// CodeBlock is a fenced code block found in a markdown document.
type CodeBlock struct {
	// Hint is the paragraph immediately preceding the block, if any.
	Hint string
	// Lang is the info string of the fence (e.g. "jsx", "go").
	Lang string
	// Content is the raw text inside the fence.
	Content string
	// StartLine is the 1-based line of the first content line in the
	// document, or the line after the opening fence for an empty block.
	StartLine int
}

// ExtractCodeBlocks walks the markdown AST and returns every fenced code
// block in document order.
func ExtractCodeBlocks(source []byte) ([]CodeBlock, error) {
	var blocks []CodeBlock
	root := goldmark.DefaultParser().Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		block := CodeBlock{Lang: string(fenced.Language(source))}

		lines := fenced.Lines()
		block.Content = string(rawLines(lines, source))
		if lines.Len() > 0 {
			block.StartLine = lineOf(source, lines.At(0).Start)
		} else if fenced.Info != nil {
			block.StartLine = lineOf(source, fenced.Info.Segment.Start) + 1
		}

		if prev := fenced.PreviousSibling(); prev != nil {
			if p, ok := prev.(*ast.Paragraph); ok {
				block.Hint = strings.TrimSpace(string(rawLines(p.Lines(), source)))
			}
		}

		blocks = append(blocks, block)
		return ast.WalkSkipChildren, nil
	}

	if err := ast.Walk(root, walker); err != nil {
		return nil, err
	}
	return blocks, nil
}

func lineOf(source []byte, offset int) int {
	if offset > len(source) {
		offset = len(source)
	}
	return bytes.Count(source[:offset], []byte("\n")) + 1
}

func rawLines(lines *text.Segments, source []byte) []byte {
	var buf bytes.Buffer
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.Bytes()
}
