package srcfix

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/sokinpui/srcfix/cli"
	"github.com/sokinpui/srcfix/internal/braces"
	"github.com/sokinpui/srcfix/internal/fs"
	"github.com/sokinpui/srcfix/internal/hoist"
	"github.com/sokinpui/srcfix/internal/nvim"
	"github.com/sokinpui/srcfix/internal/parser"
	"github.com/sokinpui/srcfix/internal/preview"
	"github.com/sokinpui/srcfix/internal/source"
	"github.com/sokinpui/srcfix/internal/state"
	"github.com/sokinpui/srcfix/internal/ui"
	"github.com/sokinpui/srcfix/model"
)

// ProgressUpdate is a callback function to report progress.
type ProgressUpdate func(current, total int)

// App orchestrates the entire application logic.
type App struct {
	cfg              *cli.Config
	stateManager     *state.Manager
	pathResolver     *fs.PathResolver
	sourceProvider   *source.SourceProvider
	progressCallback ProgressUpdate
	stdout           io.Writer
	newState         func() (*state.Manager, error)
}

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

func (e *DetailedError) Unwrap() error {
	return e.Err
}

// New creates a new App instance.
func New(cfg *cli.Config) (*App, error) {
	if cfg == nil {
		cfg = &cli.Config{}
	}
	return &App{
		cfg:            cfg,
		pathResolver:   fs.NewPathResolver(cfg.LookupDirs),
		sourceProvider: source.New(),
		stdout:         os.Stdout,
		newState:       state.New,
	}, nil
}

// SetProgressCallback sets a function to be called for progress updates.
func (a *App) SetProgressCallback(cb ProgressUpdate) {
	a.progressCallback = cb
}

// SetOutput redirects the diagnostics printed by brace checks and previews.
func (a *App) SetOutput(w io.Writer) {
	a.stdout = w
}

// history opens the state manager on first use so that read-only commands
// never create a state directory.
func (a *App) history() (*state.Manager, error) {
	if a.stateManager != nil {
		return a.stateManager, nil
	}
	m, err := a.newState()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize state manager: %w", err)
	}
	a.stateManager = m
	return m, nil
}

// Execute executes the main application logic based on parsed flags.
func (a *App) Execute() (summary model.Summary, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	switch {
	case a.cfg.Undo:
		return a.undoLastOperation()
	case a.cfg.Redo:
		return a.redoLastOperation()
	case a.cfg.Braces:
		return a.checkBraces()
	default:
		return a.runHoist()
	}
}

// checkBraces prints the brace report of the target, or of each code block
// when the input is markdown.
func (a *App) checkBraces() (model.Summary, error) {
	path := a.cfg.Target
	if path != "" {
		resolved, err := a.pathResolver.Resolve(path)
		if err != nil {
			return model.Summary{}, err
		}
		path = resolved
	}
	content, err := a.sourceProvider.GetContent(path)
	if err != nil {
		return model.Summary{}, err
	}

	if !a.cfg.Markdown {
		report := braces.Scan(content)
		report.Format(a.stdout)
		return braceSummary(report.Unclosed, report.Extra), nil
	}

	blocks, err := parser.ExtractCodeBlocks([]byte(content))
	if err != nil {
		return model.Summary{}, fmt.Errorf("failed to parse markdown: %w", err)
	}
	if len(blocks) == 0 {
		return model.Summary{Message: "No code blocks found."}, nil
	}

	var unclosed []braces.Unclosed
	var extra []int
	for i, br := range braces.ScanBlocks(blocks) {
		label := br.Block.Lang
		if label == "" {
			label = "text"
		}
		fmt.Fprintf(a.stdout, "--- Block %d (%s) at line %d ---\n", i+1, label, br.Block.StartLine)
		br.Report.Format(a.stdout)
		unclosed = append(unclosed, br.Report.Unclosed...)
		extra = append(extra, br.Report.Extra...)
	}
	return braceSummary(unclosed, extra), nil
}

func braceSummary(unclosed []braces.Unclosed, extra []int) model.Summary {
	if len(unclosed) == 0 && len(extra) == 0 {
		return model.Summary{Message: "Braces are balanced."}
	}
	return model.Summary{
		Message: fmt.Sprintf("Found %d unclosed and %d extra closing brace(s).", len(unclosed), len(extra)),
	}
}

func (a *App) loadPlan() (*hoist.Plan, error) {
	if a.cfg.PlanPath != "" {
		return hoist.LoadPlan(a.cfg.PlanPath)
	}
	return hoist.DefaultPlan()
}

// runHoist applies the plan to its target, previewing it instead on dry runs.
func (a *App) runHoist() (model.Summary, error) {
	plan, err := a.loadPlan()
	if err != nil {
		return model.Summary{}, err
	}

	target := a.cfg.Target
	if target == "" {
		target = plan.Target
	}
	if target == "" {
		return model.Summary{}, fmt.Errorf("no target file: pass one or set 'target' in the plan")
	}
	path, err := a.pathResolver.Resolve(target)
	if err != nil {
		return model.Summary{}, err
	}

	lines, err := fs.ReadLines(path)
	if err != nil {
		return model.Summary{}, err
	}
	res, err := hoist.Apply(lines, plan)
	if err != nil {
		return model.Summary{}, fmt.Errorf("failed to hoist blocks in '%s': %w", target, err)
	}

	summary := model.Summary{
		Moved:      res.Moved,
		InsertedAt: res.InsertedAt,
		Replaced:   res.Replaced,
	}
	for _, name := range res.MissingSignatures {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("Signature of %s not found; left unchanged.", name))
	}
	for _, old := range res.UnusedUsages {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("Usage not found: %s", old))
	}

	before, after := fs.JoinLines(lines), fs.JoinLines(res.Lines)

	if a.cfg.DryRun {
		if _, err := preview.Write(a.stdout, target, before, after, preview.DefaultContext); err != nil {
			return model.Summary{}, err
		}
		summary.Message = "Dry run: no files were written."
		return summary, nil
	}

	if a.cfg.Nvim {
		err = a.applyInNvim(path, res.Lines)
	} else {
		a.reportProgress(0, 1)
		err = fs.WriteLines(path, res.Lines)
		a.reportProgress(1, 1)
	}
	if err != nil {
		summary.Failed = []string{path}
		a.relativizeSummaryPaths(&summary)
		return summary, err
	}
	summary.Modified = []string{path}

	if a.cfg.Nvim && !a.cfg.Buffer {
		// Neovim may normalize line endings or the final newline on write.
		if data, err := os.ReadFile(path); err == nil {
			after = string(data)
		}
	}
	if a.cfg.Nvim && a.cfg.Buffer {
		summary.Warnings = append(summary.Warnings, "Changes are left unsaved in Neovim; undo is not recorded.")
	} else if err := a.record(path, before, after); err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("Undo is not available: %v", err))
	}

	a.relativizeSummaryPaths(&summary)
	return summary, nil
}

func (a *App) record(path, before, after string) error {
	m, err := a.history()
	if err != nil {
		return err
	}
	op, err := m.Record(path, before, after)
	if err != nil {
		return err
	}
	return m.Write([]state.Operation{op})
}

// applyInNvim writes the content through a Neovim buffer.
func (a *App) applyInNvim(path string, lines []string) error {
	manager, err := nvim.New()
	if err != nil {
		return err
	}
	defer manager.Close()

	var progressCb func(int)
	if a.progressCallback != nil {
		a.progressCallback(0, 1)
		progressCb = func(current int) { a.progressCallback(current, 1) }
	}

	_, failed := manager.ApplyChanges([]model.FileChange{{Path: path, Content: lines}}, progressCb)
	if err := failed[path]; err != nil {
		return err
	}
	if a.cfg.Buffer {
		return nil
	}
	return manager.SaveAllBuffers()
}

func (a *App) reportProgress(current, total int) {
	if a.progressCallback != nil {
		a.progressCallback(current, total)
	}
}

// undoLastOperation handles the undo logic. The history only moves back when
// every file of the entry was restored.
func (a *App) undoLastOperation() (model.Summary, error) {
	m, err := a.history()
	if err != nil {
		return model.Summary{}, err
	}
	ops := m.GetOperationsToUndo()
	if len(ops) == 0 {
		return model.Summary{Message: "No operation to undo."}, nil
	}

	summary := a.replay(ops, m.Undo)
	if len(summary.Failed) > 0 {
		summary.Message = "Undo failed; history was left unchanged."
		return summary, nil
	}
	if err := m.CommitUndo(); err != nil {
		return summary, err
	}
	summary.Message = "Undid last operation."
	return summary, nil
}

// redoLastOperation handles the redo logic.
func (a *App) redoLastOperation() (model.Summary, error) {
	m, err := a.history()
	if err != nil {
		return model.Summary{}, err
	}
	ops := m.GetOperationsToRedo()
	if len(ops) == 0 {
		return model.Summary{Message: "No operation to redo."}, nil
	}

	summary := a.replay(ops, m.Redo)
	if len(summary.Failed) > 0 {
		summary.Message = "Redo failed; history was left unchanged."
		return summary, nil
	}
	if err := m.CommitRedo(); err != nil {
		return summary, err
	}
	summary.Message = "Redid last undone operation."
	return summary, nil
}

func (a *App) replay(ops []state.Operation, fn func(state.Operation) error) model.Summary {
	var summary model.Summary
	a.reportProgress(0, len(ops))
	for i, op := range ops {
		if err := fn(op); err != nil {
			summary.Failed = append(summary.Failed, op.Path)
			summary.Warnings = append(summary.Warnings, err.Error())
		} else {
			summary.Modified = append(summary.Modified, op.Path)
		}
		a.reportProgress(i+1, len(ops))
	}
	a.relativizeSummaryPaths(&summary)
	return summary
}

// relativizeSummaryPaths converts absolute file paths in a summary to be
// relative to the current working directory for cleaner display.
func (a *App) relativizeSummaryPaths(summary *model.Summary) {
	wd, err := os.Getwd()
	if err != nil {
		return
	}

	makeRelative := func(absPaths []string) []string {
		relPaths := make([]string, len(absPaths))
		for i, p := range absPaths {
			rel, err := filepath.Rel(wd, p)
			if err != nil {
				relPaths[i] = p
			} else {
				relPaths[i] = rel
			}
		}
		return relPaths
	}

	summary.Modified = makeRelative(summary.Modified)
	summary.Failed = makeRelative(summary.Failed)
}

// PrintSummary writes a summary with the ui helpers, for runs without the TUI.
func PrintSummary(summary model.Summary) {
	switch {
	case len(summary.Moved) > 0:
		path := ""
		if len(summary.Modified) > 0 {
			path = summary.Modified[0]
		}
		ui.PrintHoistSummary(path, summary.Moved, summary.InsertedAt, summary.Replaced, summary.Warnings)
		for _, f := range summary.Failed {
			ui.Error("Failed to write %s", f)
		}
	case len(summary.Modified) > 0 || len(summary.Failed) > 0:
		ui.PrintRestoreSummary(summary.Modified, summary.Failed)
		for _, w := range summary.Warnings {
			ui.Warning("%s", w)
		}
	default:
		for _, w := range summary.Warnings {
			ui.Warning("%s", w)
		}
	}
	if summary.Message != "" {
		ui.Info("%s", summary.Message)
	}
}
