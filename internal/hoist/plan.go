package hoist

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultIndent = "  "

//go:embed default_plan.yaml
var defaultPlan []byte

// Block is a contiguous line range to hoist.
type Block struct {
	// Name identifies the block in summaries and in the usage rewrite.
	Name string `yaml:"name"`
	// Start and End are 0-based and inclusive.
	Start int `yaml:"start"`
	End   int `yaml:"end"`
	// Signature is the literal definition text on the block's first line.
	Signature string `yaml:"signature"`
	// Params are passed explicitly once the block is hoisted.
	Params []string `yaml:"params"`
	// Usage is a literal substring of the line that renders the block, e.g.
	// "{page === 'a' && <Name />}". Its "<Name />" element receives Params as props.
	Usage string `yaml:"usage"`
}

// Usage is a literal substring replacement applied to usage lines.
type Usage struct {
	Old string `yaml:"old"`
	New string `yaml:"new"`
}

// Plan describes one hoist of a file.
type Plan struct {
	// Target is the file to rewrite. A path given on the command line wins.
	Target string `yaml:"target"`
	// Indent is the unit removed by Dedent. Empty means two spaces.
	Indent string `yaml:"indent"`
	// InsertAt is the line index in the file, after the blocks are removed,
	// where the hoisted blocks go.
	InsertAt int `yaml:"insert_at"`
	// InsertAnchor, when found, overrides InsertAt with the first line
	// containing it.
	InsertAnchor string `yaml:"insert_anchor"`
	// Separator adds one blank line after each hoisted block.
	Separator bool    `yaml:"separator"`
	Blocks    []Block `yaml:"blocks"`
	// Usages are extra replacements, tried after the ones derived from Blocks.
	Usages []Usage `yaml:"usages"`
}

func (p *Plan) indent() string {
	if p.Indent == "" {
		return defaultIndent
	}
	return p.Indent
}

// AllUsages returns the usage rewrites in the order they are tried: one per
// block with a Usage, then the plan's explicit Usages.
func (p *Plan) AllUsages() []Usage {
	var usages []Usage
	for _, b := range p.Blocks {
		if b.Usage == "" {
			continue
		}
		tag := UsageFor(b.Name, b.Params)
		usages = append(usages, Usage{
			Old: b.Usage,
			New: strings.Replace(b.Usage, tag.Old, tag.New, 1),
		})
	}
	return append(usages, p.Usages...)
}

// ParsePlan decodes a YAML plan.
func ParsePlan(data []byte) (*Plan, error) {
	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	for i, b := range plan.Blocks {
		if b.Name == "" {
			return nil, fmt.Errorf("plan block %d has no name", i)
		}
	}
	return &plan, nil
}

// LoadPlan reads a YAML plan from path.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	return ParsePlan(data)
}

// DefaultPlan returns the plan built into the binary.
func DefaultPlan() (*Plan, error) {
	return ParsePlan(defaultPlan)
}
