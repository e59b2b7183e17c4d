package hoist

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numberedLines(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("  line %d\n", i)
	}
	return lines
}

func TestDedent(t *testing.T) {
	t.Parallel()

	in := []string{"    a\n", "  b\n", " c\n", "d\n", "\n"}
	out := Dedent(in, "  ")
	assert.Equal(t, []string{"  a\n", "b\n", " c\n", "d\n", "\n"}, out)
	assert.Equal(t, "    a\n", in[0], "input must not be modified")
}

func TestRewriteSignature(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"const FormCSection = ({ surveyData, setSurveyData }) => {",
		RewriteSignature("const FormCSection = () => {", []string{"surveyData", "setSurveyData"}))
	assert.Equal(t, "const X = () => {", RewriteSignature("const X = () => {", nil))
	assert.Equal(t, "function X(a) {", RewriteSignature("function X(a) {", []string{"b"}))
}

func TestUsageFor(t *testing.T) {
	t.Parallel()

	u := UsageFor("WordListSection", []string{"surveyData", "completeSurvey"})
	assert.Equal(t, "<WordListSection />", u.Old)
	assert.Equal(t, "<WordListSection surveyData={surveyData} completeSurvey={completeSurvey} />", u.New)
}

func TestApplyMovesBlockToTop(t *testing.T) {
	t.Parallel()

	lines := numberedLines(10)
	plan := &Plan{
		Blocks:   []Block{{Name: "B", Start: 2, End: 4}},
		InsertAt: 0,
	}

	res, err := Apply(lines, plan)
	require.NoError(t, err)
	require.Len(t, res.Lines, 10)

	assert.Equal(t, []string{"line 2\n", "line 3\n", "line 4\n"}, res.Lines[:3])
	assert.Equal(t, []string{"  line 0\n", "  line 1\n", "  line 5\n"}, res.Lines[3:6])

	joined := strings.Join(res.Lines, "")
	assert.Equal(t, 1, strings.Count(joined, "line 3\n"))
	assert.NotContains(t, joined, "  line 3\n")
	assert.Equal(t, []string{"B"}, res.Moved)
	assert.Equal(t, 0, res.InsertedAt)
	assert.Equal(t, "  line 2\n", lines[2], "input must not be modified")
}

func TestApplyOrderAndSeparator(t *testing.T) {
	t.Parallel()

	lines := numberedLines(12)
	plan := &Plan{
		Separator: true,
		InsertAt:  1,
		Blocks: []Block{
			{Name: "late", Start: 8, End: 9},
			{Name: "early", Start: 3, End: 3},
		},
	}

	res, err := Apply(lines, plan)
	require.NoError(t, err)
	assert.Len(t, res.Lines, 12+2)
	assert.Equal(t, []string{
		"  line 0\n",
		"line 8\n", "line 9\n", "\n",
		"line 3\n", "\n",
		"  line 1\n", "  line 2\n", "  line 4\n",
	}, res.Lines[:9])
	assert.Equal(t, []string{"late", "early"}, res.Moved)
}

func TestApplyInsertAnchor(t *testing.T) {
	t.Parallel()

	lines := []string{"a\n", "const FormASection = () => {\n", "};\n", "  x\n", "  y\n", "z\n"}
	plan := &Plan{
		InsertAt:     100,
		InsertAnchor: "const FormASection =",
		Blocks:       []Block{{Name: "XY", Start: 3, End: 4}},
	}

	res, err := Apply(lines, plan)
	require.NoError(t, err)
	assert.Equal(t, 1, res.InsertedAt)
	assert.Equal(t, []string{"a\n", "x\n", "y\n", "const FormASection = () => {\n", "};\n", "z\n"}, res.Lines)
}

func TestApplyInsertAtClampsToEnd(t *testing.T) {
	t.Parallel()

	lines := []string{"  a\n", "b\n", "c"}
	plan := &Plan{InsertAt: 50, Blocks: []Block{{Name: "A", Start: 0, End: 0}}}

	res, err := Apply(lines, plan)
	require.NoError(t, err)
	assert.Equal(t, 2, res.InsertedAt)
	// The unterminated last line gets a terminator once it is no longer last.
	assert.Equal(t, []string{"b\n", "c\n", "a\n"}, res.Lines)
}

func TestApplySignatureAndUsages(t *testing.T) {
	t.Parallel()

	lines := []string{
		"const App = () => {\n",
		"  const Section = () => {\n",
		"    return <div>{data}</div>;\n",
		"  };\n",
		"  return (\n",
		"    <main>\n",
		"      {page === 'a' && <Section />}\n",
		"    </main>\n",
		"  );\n",
		"};\n",
	}
	plan := &Plan{
		InsertAt: 0,
		Blocks: []Block{{
			Name:      "Section",
			Start:     1,
			End:       3,
			Signature: "const Section = () => {",
			Params:    []string{"data", "setData"},
			Usage:     "{page === 'a' && <Section />}",
		}},
	}

	res, err := Apply(lines, plan)
	require.NoError(t, err)
	assert.Equal(t, "const Section = ({ data, setData }) => {\n", res.Lines[0])
	assert.Equal(t, "  return <div>{data}</div>;\n", res.Lines[1])
	assert.Equal(t, "};\n", res.Lines[2])
	assert.Equal(t, "      {page === 'a' && <Section data={data} setData={setData} />}\n", res.Lines[6])
	assert.Equal(t, 1, res.Replaced)
	assert.Empty(t, res.UnusedUsages)
	assert.Empty(t, res.MissingSignatures)
}

func TestApplyAbsentStringsAreNoOps(t *testing.T) {
	t.Parallel()

	lines := numberedLines(5)
	plan := &Plan{
		Blocks: []Block{{
			Name:      "B",
			Start:     1,
			End:       1,
			Signature: "const B = () => {",
			Params:    []string{"x"},
			Usage:     "<B />",
		}},
		Usages: []Usage{{Old: "missing", New: "found"}},
	}

	res, err := Apply(lines, plan)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Replaced)
	assert.Equal(t, []string{"<B />", "missing"}, res.UnusedUsages)
	assert.Equal(t, []string{"B"}, res.MissingSignatures)
	assert.Equal(t, "line 1\n", res.Lines[0])
}

func TestApplyFirstMatchingUsageWins(t *testing.T) {
	t.Parallel()

	lines := []string{"  a\n", "foo bar foo\n"}
	plan := &Plan{
		Blocks: []Block{{Name: "A", Start: 0, End: 0}},
		Usages: []Usage{{Old: "foo", New: "F"}, {Old: "bar", New: "B"}},
	}

	res, err := Apply(lines, plan)
	require.NoError(t, err)
	assert.Equal(t, "F bar F\n", res.Lines[1])
	assert.Equal(t, 2, res.Replaced)
	assert.Equal(t, []string{"bar"}, res.UnusedUsages)
}

func TestApplyRejectsBadRanges(t *testing.T) {
	t.Parallel()

	lines := numberedLines(5)
	cases := map[string][]Block{
		"no blocks": nil,
		"inverted":  {{Name: "a", Start: 3, End: 2}},
		"negative":  {{Name: "a", Start: -1, End: 2}},
		"outside":   {{Name: "a", Start: 3, End: 5}},
		"overlap":   {{Name: "a", Start: 0, End: 2}, {Name: "b", Start: 2, End: 3}},
	}
	for name, blocks := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Apply(lines, &Plan{Blocks: blocks})
			assert.Error(t, err)
		})
	}
}

func TestApplyUnterminatedLines(t *testing.T) {
	t.Parallel()

	lines := []string{"a", "  b", "c"}
	res, err := Apply(lines, &Plan{Separator: true, Blocks: []Block{{Name: "b", Start: 1, End: 1}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "", "a", "c"}, res.Lines)
}

func TestApplyKeepsCRLF(t *testing.T) {
	t.Parallel()

	lines := []string{"a\r\n", "  b\r\n", "c\r\n"}
	res, err := Apply(lines, &Plan{Separator: true, Blocks: []Block{{Name: "b", Start: 1, End: 1}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"b\r\n", "\r\n", "a\r\n", "c\r\n"}, res.Lines)
}
