package display

import (
	"regexp"
	"strings"
	"testing"

	"pulse-cli/internal/answer"
	"pulse-cli/internal/render"
	"pulse-cli/internal/search"
)

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string { return ansiRe.ReplaceAllString(s, "") }

func TestLabels(t *testing.T) {
	tests := []struct {
		fn    func(string) string
		input string
		want  string
	}{
		{SentimentLabel, "Positive", "Positive"},
		{SentimentLabel, "Mixed", "Mixed"},
		{TrendinessLabel, "Trending", "Trending"},
		{ConfidenceLabel, "Conflicting", "Conflicting"},
		{ClaimStatusLabel, "Single source", "Single source"},
		{ClaimStatusLabel, "Well-supported", "Well-supported"},
	}
	for _, tt := range tests {
		label := tt.fn(tt.input)
		if !strings.Contains(label, tt.want) {
			t.Errorf("label(%q) = %q, want it to contain %q", tt.input, label, tt.want)
		}
		if !strings.Contains(label, Reset) {
			t.Errorf("label(%q) = %q, expected ANSI-colored output", tt.input, label)
		}
	}

	if got := SentimentLabel("Weird"); !strings.Contains(got, "Weird") || !strings.Contains(got, Gray) {
		t.Errorf("unknown sentiment = %q, want gray passthrough", got)
	}
	if got := ConfidenceLabel("Unknown"); got != "Unknown" {
		t.Errorf("unknown confidence = %q, want passthrough", got)
	}
}

func TestRenderBlocks(t *testing.T) {
	src := answer.Source{URI: "https://a.example/page", Title: "Source A", Snippet: "a quoted\n  passage"}
	blocks := render.Render("## Overview\n\nCairo is big [1] and old [7].\n\n* first [1]\n* second", []answer.Source{src}, "old")

	got := stripANSI(RenderBlocks(blocks, 60))
	for _, want := range []string{
		"Overview",
		"Cairo is big",
		"[1] Source A",
		"https://a.example/page",
		"“a quoted passage”",
		"and old [7?].",
		"  • first [1]",
		"  • second",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderBlocks missing %q in:\n%s", want, got)
		}
	}
}

func TestRenderBlocks_Empty(t *testing.T) {
	if got := RenderBlocks(nil, 80); got != "" {
		t.Errorf("RenderBlocks(nil) = %q, want empty", got)
	}
}

func TestRenderBlocks_WrapsToWidth(t *testing.T) {
	blocks := render.Render(strings.Repeat("word ", 40), nil, "")
	for _, line := range strings.Split(stripANSI(RenderBlocks(blocks, 30)), "\n") {
		if n := len([]rune(strings.TrimRight(line, " "))); n > 30 {
			t.Errorf("line %q is %d wide, want <= 30", line, n)
		}
	}
}

func TestRenderBlocks_Table(t *testing.T) {
	blocks := render.Render("| City | Pop |\n|---|---|\n| Cairo | 9M |", nil, "")
	got := stripANSI(RenderBlocks(blocks, 80))
	if !strings.Contains(got, "┌") || !strings.Contains(got, "│ Cairo │") {
		t.Errorf("table not drawn:\n%s", got)
	}
}

func TestRenderInlineMarkdown(t *testing.T) {
	tests := []struct {
		input string
		plain string
		code  string
	}{
		{"**bold** text", "bold text", ansiBold},
		{"use `go test`", "use go test", ansiCode},
		{"see [docs](https://x.io)", "see docs (https://x.io)", ansiUnderline},
		{"plain", "plain", ""},
	}
	for _, tt := range tests {
		got := renderInlineMarkdown(tt.input)
		if stripANSI(got) != tt.plain {
			t.Errorf("renderInlineMarkdown(%q) = %q, want plain %q", tt.input, stripANSI(got), tt.plain)
		}
		if tt.code != "" && !strings.Contains(got, tt.code) {
			t.Errorf("renderInlineMarkdown(%q) missing style %q", tt.input, tt.code)
		}
	}
}

func TestRenderMarkdownLines(t *testing.T) {
	got := stripANSI(renderMarkdownLines("# Title\n- item\n2. second\n> quote\n```\ncode\n```"))
	want := "Title\n• item\n2. second\n│ quote\n┌──\n│ code\n└──"
	if got != want {
		t.Errorf("renderMarkdownLines =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderMarkdown(t *testing.T) {
	got := stripANSI(RenderMarkdown("# Summary\n\nThe **key** point.", 60))
	if !strings.Contains(got, "Summary") || !strings.Contains(got, "key") {
		t.Errorf("RenderMarkdown lost content:\n%s", got)
	}
}

func TestWrapCell(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  []string
	}{
		{"short", 10, []string{"short"}},
		{"hello world again", 11, []string{"hello world", "again"}},
		{"hello world again", 8, []string{"hello", "world", "again"}},
		{"abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
	}
	for _, tt := range tests {
		got := wrapCell(tt.text, tt.width)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("wrapCell(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
		}
	}
}

func TestRenderSources(t *testing.T) {
	got := stripANSI(RenderSources([]answer.Source{{URI: "u1", Title: "One"}, {URI: "u2", Title: "Two"}}))
	if !strings.Contains(got, "[1] One") || !strings.Contains(got, "[2] Two") || !strings.Contains(got, "u2") {
		t.Errorf("RenderSources =\n%s", got)
	}
	if got := stripANSI(RenderSources(nil)); !strings.Contains(got, "No sources") {
		t.Errorf("empty sources = %q", got)
	}
}

func TestRenderRelated(t *testing.T) {
	if RenderRelated(nil) != "" {
		t.Error("no questions should render nothing")
	}
	got := stripANSI(RenderRelated([]string{"why?", "how?"}))
	if !strings.Contains(got, "1. why?") || !strings.Contains(got, "type 1-2") {
		t.Errorf("RenderRelated =\n%s", got)
	}
}

func TestRenderInsights(t *testing.T) {
	if RenderInsights(nil) != "" {
		t.Error("nil insights should render nothing")
	}
	got := stripANSI(RenderInsights(&search.Insights{
		Sentiment:     "Negative",
		Keywords:      []string{"flood", "delta"},
		Entities:      []search.Entity{{Name: "Nile", Type: "Location"}},
		SummaryPoints: []string{"water rose"},
		Trendiness:    "Trending",
	}))
	for _, want := range []string{"Negative", "flood, delta", "Nile (Location)", "• water rose", "Trending"} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderInsights missing %q in:\n%s", want, got)
		}
	}
}

func TestRenderFactCheck(t *testing.T) {
	got := stripANSI(RenderFactCheck(&search.FactCheckResult{
		OverallConfidence: "Medium",
		Claims: []search.Claim{
			{Claim: "A is B", Status: "Well-supported"},
			{Claim: "C is D", Status: "Conflicting", Explanation: "reports differ"},
		},
	}))
	for _, want := range []string{"Medium", "Well-supported  A is B", "Conflicting  C is D", "↳ reports differ"} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderFactCheck missing %q in:\n%s", want, got)
		}
	}
	if got := stripANSI(RenderFactCheck(&search.FactCheckResult{OverallConfidence: "High"})); !strings.Contains(got, "No factual claims") {
		t.Errorf("empty claims = %q", got)
	}
}
