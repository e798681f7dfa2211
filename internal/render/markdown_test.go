package render

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse-cli/internal/answer"
)

var (
	srcA = answer.Source{URI: "a", Title: "A"}
	srcB = answer.Source{URI: "b", Title: "B", Snippet: "quoted"}
)

func para(inlines ...Inline) *Paragraph { return &Paragraph{Inlines: inlines} }

func TestRender_ScenarioA_ResolvedAndUnresolved(t *testing.T) {
	got := Render("Hello [1] world [2].", []answer.Source{srcA}, "")

	want := []Block{
		para(Text{"Hello"}),
		&CitationBlock{Number: 1, Source: srcA},
		para(Text{"world "}, UnresolvedCitation{Number: 2}, Text{"."}),
	}
	assert.Equal(t, want, got)
}

func TestRender_ScenarioB_HeadingThenBody(t *testing.T) {
	got := Render("## Title\nBody [1].", []answer.Source{srcA}, "")

	want := []Block{
		&Heading{Level: 2, Inlines: []Inline{Text{"Title"}}},
		para(Text{"Body"}),
		&CitationBlock{Number: 1, Source: srcA},
		para(Text{"."}),
	}
	assert.Equal(t, want, got)
}

func TestRender_ScenarioC_BulletList(t *testing.T) {
	got := Render("* one [1]\n* two", []answer.Source{srcA}, "")

	require.Len(t, got, 1)
	list, ok := got[0].(*BulletList)
	require.True(t, ok, "expected *BulletList, got %T", got[0])
	require.Len(t, list.Items, 2)
	assert.Equal(t, []Inline{Text{"one "}, Citation{Number: 1, Source: srcA}}, list.Items[0])
	assert.Equal(t, []Inline{Text{"two"}}, list.Items[1])
}

func TestRender_ScenarioD_CaseInsensitiveHighlight(t *testing.T) {
	got := Render("Hello there, hello again.", nil, "hello")

	want := []Block{
		para(Highlight{"Hello"}, Text{" there, "}, Highlight{"hello"}, Text{" again."}),
	}
	assert.Equal(t, want, got)
}

func TestRender_HeadingLevels(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Block
	}{
		{"level one", "# Top", &Heading{Level: 1, Inlines: []Inline{Text{"Top"}}}},
		{"level two wins over one", "## Sub", &Heading{Level: 2, Inlines: []Inline{Text{"Sub"}}}},
		{"level three is plain text", "### Deep", para(Text{"### Deep"})},
		{"marker needs a space", "#NoSpace", para(Text{"#NoSpace"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Render(tt.text, nil, "")
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0])
		})
	}
}

func TestRender_HeadingWithResolvedCitation(t *testing.T) {
	got := Render("# Cairo [1] facts", []answer.Source{srcA}, "")

	want := []Block{
		&Heading{Level: 1, Inlines: []Inline{Text{"Cairo "}, Citation{Number: 1, Source: srcA}, Text{" facts"}}},
	}
	assert.Equal(t, want, got)
}

func TestRender_HeadingFollowedByList(t *testing.T) {
	got := Render("## Points\n* a\n- b", nil, "")

	require.Len(t, got, 2)
	assert.IsType(t, &Heading{}, got[0])
	list, ok := got[1].(*BulletList)
	require.True(t, ok)
	assert.Len(t, list.Items, 2)
}

func TestRender_ListNeedsEveryLine(t *testing.T) {
	got := Render("* first\nnot an item", nil, "")

	require.Len(t, got, 1)
	assert.Equal(t, para(Text{"* first\nnot an item"}), got[0])
}

func TestRender_BlockSegmentation(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"single newline keeps one block", "a\nb", 1},
		{"blank line splits", "a\n\nb", 2},
		{"whitespace-only line splits", "a\n   \nb", 2},
		{"many blank lines", "a\n\n\n\n\nb", 2},
		{"crlf", "a\r\n\r\nb", 2},
		{"leading and trailing blanks dropped", "\n\n  a  \n\n", 1},
		{"empty", "", 0},
		{"whitespace only", " \n\t\n ", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Render(tt.text, nil, ""), tt.want)
		})
	}
}

func TestRender_MalformedCitationsArePlainText(t *testing.T) {
	inputs := []string{
		"see [abc] here",
		"see [1 2] here",
		"see [ 3 here",
		"see 4] here",
		"see [] here",
		"see [-1] here",
		"see [[x]] here",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			got := Render(in, []answer.Source{srcA}, "")
			require.Len(t, got, 1)
			assert.Equal(t, para(Text{in}), got[0])
		})
	}
}

func TestRender_CitationEdgeNumbers(t *testing.T) {
	got := Render("zero [0] spaced [ 2 ] huge [99999999999999999999999]", []answer.Source{srcA, srcB}, "")

	want := []Block{
		para(Text{"zero "}, UnresolvedCitation{Number: 0}, Text{" spaced"}),
		&CitationBlock{Number: 2, Source: srcB},
		para(Text{"huge [99999999999999999999999]"}),
	}
	assert.Equal(t, want, got)
}

func TestRender_AdjacentCitations(t *testing.T) {
	got := Render("fact [1][2]", []answer.Source{srcA, srcB}, "")

	want := []Block{
		para(Text{"fact"}),
		&CitationBlock{Number: 1, Source: srcA},
		&CitationBlock{Number: 2, Source: srcB},
	}
	assert.Equal(t, want, got)
}

func TestRender_HighlightEscapesPattern(t *testing.T) {
	got := Render("aXb and a.b", nil, "a.b")
	assert.Equal(t, []Block{para(Text{"aXb and "}, Highlight{"a.b"})}, got)

	// unbalanced regex syntax must not break rendering
	got = Render("call f(x now", nil, "f(x")
	assert.Equal(t, []Block{para(Text{"call "}, Highlight{"f(x"}, Text{" now"})}, got)
}

func TestRender_HighlightNeverSpansCitation(t *testing.T) {
	got := Render("foo[1]bar", nil, "o[1]b")
	assert.Equal(t, []Block{para(Text{"foo"}, UnresolvedCitation{Number: 1}, Text{"bar"})}, got)

	got = Render("item [1] 1", nil, "1")
	assert.Equal(t, []Block{para(Text{"item "}, UnresolvedCitation{Number: 1}, Text{" "}, Highlight{"1"})}, got)
}

func TestRender_BlankHighlightIsNoop(t *testing.T) {
	assert.Equal(t, Render("hello", nil, ""), Render("hello", nil, "   "))
}

func TestRender_HighlightInListAndHeading(t *testing.T) {
	got := Render("# Go news\n\n* go fast", nil, "GO")

	require.Len(t, got, 2)
	assert.Equal(t, &Heading{Level: 1, Inlines: []Inline{Highlight{"Go"}, Text{" news"}}}, got[0])
	assert.Equal(t, &BulletList{Items: [][]Inline{{Highlight{"go"}, Text{" fast"}}}}, got[1])
}

func TestRender_Idempotent(t *testing.T) {
	text := "## Intro\nCairo [1] is big [2].\n\n* a [1]\n* b [3]\n\nEnd [2]."
	sources := []answer.Source{srcA, srcB}

	assert.Equal(t, Render(text, sources, "big"), Render(text, sources, "big"))
}

func resolvedCitations(blocks []Block) map[int]answer.Source {
	out := make(map[int]answer.Source)
	collect := func(inlines []Inline) {
		for _, in := range inlines {
			if c, ok := in.(Citation); ok {
				out[c.Number] = c.Source
			}
		}
	}
	for _, b := range blocks {
		switch v := b.(type) {
		case *CitationBlock:
			out[v.Number] = v.Source
		case *Heading:
			collect(v.Inlines)
		case *BulletList:
			for _, item := range v.Items {
				collect(item)
			}
		}
	}
	return out
}

func TestRender_CitationsStayStableAsStreamGrows(t *testing.T) {
	full := "## Topic [1]\nFirst [1] then [2].\n\n* point [3]\n* more [2]\n\nDone [1][3]."
	all := []answer.Source{srcA, srcB, {URI: "c", Title: "C"}}

	var prev map[int]answer.Source
	for i := 0; i <= len(full); i++ {
		// sources trickle in as the text grows
		n := i * len(all) / len(full)
		cur := resolvedCitations(Render(full[:i], all[:n], ""))
		for k, src := range prev {
			if got, ok := cur[k]; ok {
				assert.Equal(t, src, got, "citation [%d] changed source at offset %d", k, i)
			}
		}
		prev = cur
	}
}

func TestRender_PlainTextRoundTrip(t *testing.T) {
	text := "first paragraph\nline two\n\nsecond paragraph, with commas.\n\nthird"

	var parts []string
	for _, b := range Render(text, nil, "") {
		p, ok := b.(*Paragraph)
		require.True(t, ok)
		parts = append(parts, PlainText(p.Inlines))
	}
	assert.Equal(t, text, strings.Join(parts, "\n\n"))
}

func TestRender_NeverPanics(t *testing.T) {
	alphabet := []string{"[", "]", "#", "## ", "* ", "- ", " ", "\n", "\n\n", "1", "99", "x", "é", "\t"}
	rng := rand.New(rand.NewSource(7))
	sources := []answer.Source{srcA, srcB}

	for i := 0; i < 2000; i++ {
		var b strings.Builder
		for j := rng.Intn(40); j > 0; j-- {
			b.WriteString(alphabet[rng.Intn(len(alphabet))])
		}
		in := b.String()
		assert.NotPanics(t, func() { Render(in, sources, "x") }, "input %q", in)
	}
}

func TestPlainText(t *testing.T) {
	inlines := []Inline{Text{"a "}, Highlight{"b"}, Citation{Number: 1, Source: srcA}, UnresolvedCitation{Number: 4}}
	assert.Equal(t, "a b[1][4]", PlainText(inlines))
}
