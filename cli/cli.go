package cli

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// Config holds all the command-line flag values.
type Config struct {
	Braces     bool
	Markdown   bool
	PlanPath   string
	DryRun     bool
	Nvim       bool
	Buffer     bool
	NoTUI      bool
	Undo       bool
	Redo       bool
	LookupDirs []string
	// Target is the optional positional file argument.
	Target string
}

// ParseFlags defines and parses the process's command-line flags.
func ParseFlags() (*Config, error) {
	return Parse(os.Args[0], os.Args[1:])
}

// Parse defines and parses flags from args.
func Parse(name string, args []string) (*Config, error) {
	cfg := &Config{}
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)

	flags.BoolVarP(&cfg.Braces, "braces", "c", false, "Check brace balance of the file, stdin or clipboard instead of hoisting.")
	flags.BoolVarP(&cfg.Markdown, "markdown", "m", false, "With --braces, check each fenced code block of a markdown input separately.")
	flags.StringVarP(&cfg.PlanPath, "plan", "p", "", "YAML hoist plan (default: the built-in plan).")
	flags.BoolVarP(&cfg.DryRun, "dry-run", "n", false, "Print the diff of the hoist without writing the file.")
	flags.BoolVar(&cfg.Nvim, "nvim", false, "Apply the hoist through a Neovim buffer.")
	flags.BoolVarP(&cfg.Buffer, "buffer", "b", false, "With --nvim, update the buffer without saving it to disk.")
	flags.BoolVar(&cfg.NoTUI, "no-tui", false, "Print plain output instead of running the interactive view.")
	flags.StringSliceVarP(&cfg.LookupDirs, "lookup-dir", "l", []string{}, "Directories to look for the target file in (default: current directory).")

	// Mutually exclusive history group
	flags.BoolVarP(&cfg.Undo, "undo", "u", false, "Undo the last hoist.")
	flags.BoolVarP(&cfg.Redo, "redo", "r", false, "Redo the last undone hoist.")

	flags.Usage = func() {
		fmt.Println("Usage: srcfix [flags] [file]")
		fmt.Println("\nHoist fixed line ranges of a source file, or check its brace balance.")
		fmt.Println("\nExamples:")
		fmt.Println("  srcfix -c src/App.jsx")
		fmt.Println("  pbpaste | srcfix -c -m")
		fmt.Println("  srcfix -p plan.yaml -n")
		fmt.Println("\nFlags:")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	switch flags.NArg() {
	case 0:
	case 1:
		cfg.Target = flags.Arg(0)
	default:
		return nil, fmt.Errorf("error: expected at most one file, got %d", flags.NArg())
	}

	if cfg.Undo && cfg.Redo {
		return nil, fmt.Errorf("error: --undo and --redo are mutually exclusive")
	}
	if (cfg.Undo || cfg.Redo) && (cfg.Braces || cfg.DryRun || cfg.PlanPath != "" || cfg.Target != "") {
		return nil, fmt.Errorf("error: --undo and --redo cannot be combined with --braces, --dry-run, --plan or a file")
	}
	if cfg.Braces && (cfg.DryRun || cfg.PlanPath != "" || cfg.Nvim) {
		return nil, fmt.Errorf("error: --braces cannot be combined with hoist flags")
	}
	if cfg.Markdown && !cfg.Braces {
		return nil, fmt.Errorf("error: --markdown requires --braces")
	}
	if cfg.Buffer && !cfg.Nvim {
		return nil, fmt.Errorf("error: --buffer requires --nvim")
	}

	return cfg, nil
}

// PrintsOnly reports whether the run writes its product to stdout, in which
// case the interactive view is skipped.
func (c *Config) PrintsOnly() bool {
	return c.Braces || c.DryRun || c.NoTUI
}
