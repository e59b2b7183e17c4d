package srcfix

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/srcfix/cli"
	"github.com/sokinpui/srcfix/internal/state"
)

const component = `import React from 'react';

const Survey = () => {
  const [surveyData, setSurveyData] = useState({});

  const NotesSection = () => {
    return <textarea value={surveyData.notes} />;
  };

  return (
    <div>
      {currentSection === 'notes' && <NotesSection />}
    </div>
  );
};
`

const notesPlan = `
target: Survey.jsx
insert_at: 2
separator: true
blocks:
  - name: NotesSection
    start: 5
    end: 7
    signature: "const NotesSection = () => {"
    params: [surveyData]
    usage: "{currentSection === 'notes' && <NotesSection />}"
`

const hoisted = `import React from 'react';

const NotesSection = ({ surveyData }) => {
  return <textarea value={surveyData.notes} />;
};

const Survey = () => {
  const [surveyData, setSurveyData] = useState({});


  return (
    <div>
      {currentSection === 'notes' && <NotesSection surveyData={surveyData} />}
    </div>
  );
};
`

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// newTestApp writes the component and plan into a temp dir and returns an
// app whose history lives there too.
func newTestApp(t *testing.T, cfg *cli.Config) (*App, string, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	target := filepath.Join(dir, "Survey.jsx")
	require.NoError(t, os.WriteFile(target, []byte(component), 0644))
	planPath := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(planPath, []byte(notesPlan), 0644))

	cfg.PlanPath = planPath
	cfg.LookupDirs = []string{dir}

	app, err := New(cfg)
	require.NoError(t, err)
	app.newState = func() (*state.Manager, error) { return state.NewAt(dir) }

	var out bytes.Buffer
	app.SetOutput(&out)
	return app, target, &out
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestHoistWritesFile(t *testing.T) {
	app, target, _ := newTestApp(t, &cli.Config{})

	var progress [][2]int
	app.SetProgressCallback(func(current, total int) {
		progress = append(progress, [2]int{current, total})
	})

	summary, err := app.Execute()
	require.NoError(t, err)
	assert.Equal(t, hoisted, readFile(t, target))
	assert.Equal(t, []string{"NotesSection"}, summary.Moved)
	assert.Equal(t, 2, summary.InsertedAt)
	assert.Equal(t, 1, summary.Replaced)
	assert.Empty(t, summary.Warnings)
	require.Len(t, summary.Modified, 1)
	assert.Equal(t, [][2]int{{0, 1}, {1, 1}}, progress)
}

func TestHoistUndoRedo(t *testing.T) {
	cfg := &cli.Config{}
	app, target, _ := newTestApp(t, cfg)

	_, err := app.Execute()
	require.NoError(t, err)
	require.Equal(t, hoisted, readFile(t, target))

	cfg.Undo = true
	summary, err := app.Execute()
	require.NoError(t, err)
	assert.Equal(t, component, readFile(t, target))
	assert.Equal(t, "Undid last operation.", summary.Message)
	assert.Len(t, summary.Modified, 1)

	cfg.Undo, cfg.Redo = false, true
	summary, err = app.Execute()
	require.NoError(t, err)
	assert.Equal(t, hoisted, readFile(t, target))
	assert.Equal(t, "Redid last undone operation.", summary.Message)

	summary, err = app.Execute()
	require.NoError(t, err)
	assert.Equal(t, "No operation to redo.", summary.Message)
}

func TestUndoOfChangedFileKeepsHistory(t *testing.T) {
	cfg := &cli.Config{}
	app, target, _ := newTestApp(t, cfg)

	_, err := app.Execute()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(target, []byte("edited\n"), 0644))

	cfg.Undo = true
	summary, err := app.Execute()
	require.NoError(t, err)
	assert.Equal(t, "Undo failed; history was left unchanged.", summary.Message)
	assert.Len(t, summary.Failed, 1)
	assert.Equal(t, "edited\n", readFile(t, target))

	cfg.Undo, cfg.Redo = false, true
	summary, err = app.Execute()
	require.NoError(t, err)
	assert.Equal(t, "No operation to redo.", summary.Message)

	require.NoError(t, os.WriteFile(target, []byte(hoisted), 0644))
	cfg.Undo, cfg.Redo = true, false
	summary, err = app.Execute()
	require.NoError(t, err)
	assert.Equal(t, "Undid last operation.", summary.Message)
	assert.Equal(t, component, readFile(t, target))
}

func TestHoistDryRun(t *testing.T) {
	app, target, out := newTestApp(t, &cli.Config{DryRun: true})

	summary, err := app.Execute()
	require.NoError(t, err)
	assert.Equal(t, component, readFile(t, target), "dry run must not write")
	assert.Equal(t, "Dry run: no files were written.", summary.Message)
	assert.Contains(t, out.String(), "+const NotesSection = ({ surveyData }) => {\n")
	assert.Contains(t, out.String(), "-  const NotesSection = () => {\n")
	assert.Contains(t, out.String(), "+      {currentSection === 'notes' && <NotesSection surveyData={surveyData} />}\n")
}

func TestHoistReportsMissingStrings(t *testing.T) {
	app, target, _ := newTestApp(t, &cli.Config{})
	require.NoError(t, os.WriteFile(target, []byte(strings.ReplaceAll(component, "NotesSection", "Notes")), 0644))

	summary, err := app.Execute()
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Replaced)
	assert.Len(t, summary.Warnings, 2)
}

func TestHoistRejectsShortFile(t *testing.T) {
	app, target, _ := newTestApp(t, &cli.Config{})
	require.NoError(t, os.WriteFile(target, []byte("one line\n"), 0644))

	_, err := app.Execute()
	assert.Error(t, err)
	assert.Equal(t, "one line\n", readFile(t, target))
}

func TestCheckBraces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.js")
	require.NoError(t, os.WriteFile(path, []byte("if (a) {\n  b();\n"), 0644))

	app, err := New(&cli.Config{Braces: true, Target: path})
	require.NoError(t, err)
	var out bytes.Buffer
	app.SetOutput(&out)

	summary, err := app.Execute()
	require.NoError(t, err)
	assert.Equal(t, "Unclosed opening braces at positions: [7]\nLine 1: if (a) {\n", out.String())
	assert.Equal(t, "Found 1 unclosed and 0 extra closing brace(s).", summary.Message)
}

func TestCheckBracesUsesLookupDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.js"), []byte("}\n"), 0644))

	app, err := New(&cli.Config{Braces: true, Target: "b.js", LookupDirs: []string{dir}})
	require.NoError(t, err)
	var out bytes.Buffer
	app.SetOutput(&out)

	summary, err := app.Execute()
	require.NoError(t, err)
	assert.Equal(t, "Extra closing brace at position 0\n", out.String())
	assert.Equal(t, "Found 0 unclosed and 1 extra closing brace(s).", summary.Message)

	app, err = New(&cli.Config{Braces: true, Target: "missing.js", LookupDirs: []string{dir}})
	require.NoError(t, err)
	_, err = app.Execute()
	assert.Error(t, err)
}

func TestCheckBracesMarkdown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Notes\n\n```js\nf() {}\n```\n"), 0644))

	app, err := New(&cli.Config{Braces: true, Markdown: true, Target: path})
	require.NoError(t, err)
	var out bytes.Buffer
	app.SetOutput(&out)

	summary, err := app.Execute()
	require.NoError(t, err)
	assert.Equal(t, "--- Block 1 (js) at line 4 ---\nNo brace mismatch found in the entire file.\n", out.String())
	assert.Equal(t, "Braces are balanced.", summary.Message)
}

func TestLibraryHelpers(t *testing.T) {
	assert.True(t, CheckBraces("{a{b}}").Balanced())
	assert.False(t, CheckBraces("{a{b}").Balanced())

	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\n  b\nc\n"), 0644))

	res, err := Hoist(path, &Plan{Blocks: []Block{{Name: "b", Start: 1, End: 1}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, res.Moved)
	assert.Equal(t, "b\na\nc\n", readFile(t, path))
}
