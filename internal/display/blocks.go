package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"pulse-cli/internal/answer"
	"pulse-cli/internal/render"
	"pulse-cli/internal/search"
)

const (
	defaultWidth    = 80
	maxCardWidth    = 76
	maxSnippetRunes = 220
)

// ─── Styles ─────────────────────────────────────────────────────────────────

var (
	colorOrange  = lipgloss.Color("#F28C28")
	colorBlue    = lipgloss.Color("111")
	colorGray    = lipgloss.Color("242")
	colorDimGray = lipgloss.Color("238")
	colorWhite   = lipgloss.Color("255")
	colorYellow  = lipgloss.Color("220")
)

var heading1Style = lipgloss.NewStyle().
	Foreground(colorOrange).
	Bold(true).
	Underline(true)

var heading2Style = lipgloss.NewStyle().
	Foreground(colorWhite).
	Bold(true)

var highlightStyle = lipgloss.NewStyle().
	Foreground(colorYellow).
	Reverse(true)

var citationStyle = lipgloss.NewStyle().
	Foreground(colorBlue).
	Bold(true)

var unresolvedStyle = lipgloss.NewStyle().
	Foreground(colorDimGray)

var cardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorBlue).
	Padding(0, 1)

var cardTitleStyle = lipgloss.NewStyle().
	Foreground(colorWhite).
	Bold(true)

var cardURIStyle = lipgloss.NewStyle().
	Foreground(colorGray).
	Underline(true)

var cardSnippetStyle = lipgloss.NewStyle().
	Foreground(colorGray).
	Italic(true)

var sectionStyle = lipgloss.NewStyle().
	Foreground(colorBlue).
	Bold(true)

var relatedStyle = lipgloss.NewStyle().
	Foreground(colorOrange)

var dimStyle = lipgloss.NewStyle().
	Foreground(colorGray)

// ─── Answer blocks ──────────────────────────────────────────────────────────

// RenderBlocks lays out a rendered answer for a terminal of the given
// width. Blocks are separated by blank lines.
func RenderBlocks(blocks []render.Block, width int) string {
	if width <= 0 {
		width = defaultWidth
	}
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if s := renderBlock(b, width); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "\n\n")
}

func renderBlock(b render.Block, width int) string {
	switch b := b.(type) {
	case *render.Heading:
		style := heading2Style
		if b.Level == 1 {
			style = heading1Style
		}
		return wrap(style.Render(renderInlines(b.Inlines)), width)

	case *render.Paragraph:
		if plain := render.PlainText(b.Inlines); onlyText(b.Inlines) && isPipeTable(plain) {
			return renderTable(plain, width)
		}
		return wrap(renderInlines(b.Inlines), width)

	case *render.BulletList:
		items := make([]string, len(b.Items))
		for i, item := range b.Items {
			body := wrap(renderInlines(item), width-4)
			items[i] = "  • " + strings.ReplaceAll(body, "\n", "\n    ")
		}
		return strings.Join(items, "\n")

	case *render.CitationBlock:
		return renderCard(b.Number, b.Source, width)
	}
	return ""
}

func onlyText(inlines []render.Inline) bool {
	for _, in := range inlines {
		if _, ok := in.(render.Text); !ok {
			return false
		}
	}
	return true
}

func renderInlines(inlines []render.Inline) string {
	var b strings.Builder
	for _, in := range inlines {
		switch in := in.(type) {
		case render.Text:
			b.WriteString(renderInlineMarkdown(in.Value))
		case render.Highlight:
			b.WriteString(highlightStyle.Render(in.Value))
		case render.Citation:
			b.WriteString(citationStyle.Render(fmt.Sprintf("[%d]", in.Number)))
		case render.UnresolvedCitation:
			b.WriteString(unresolvedStyle.Render(fmt.Sprintf("[%d?]", in.Number)))
		}
	}
	return b.String()
}

func renderCard(n int, src answer.Source, width int) string {
	cardWidth := min(width-2, maxCardWidth)
	inner := cardWidth - 4

	lines := []string{
		citationStyle.Render(fmt.Sprintf("[%d]", n)) + " " + cardTitleStyle.Render(src.Title),
		cardURIStyle.Render(truncate(src.URI, inner)),
	}
	if snippet := strings.Join(strings.Fields(src.Snippet), " "); snippet != "" {
		lines = append(lines, cardSnippetStyle.Render("“"+truncate(snippet, maxSnippetRunes)+"”"))
	}
	return cardStyle.Width(cardWidth - 2).Render(strings.Join(lines, "\n"))
}

// ─── Follow-up sections ─────────────────────────────────────────────────────

// RenderSources lists every source with the number its citations use.
func RenderSources(sources []answer.Source) string {
	if len(sources) == 0 {
		return dimStyle.Render("  No sources.")
	}
	var b strings.Builder
	b.WriteString(sectionStyle.Render("  📎 Sources") + "\n")
	for i, src := range sources {
		fmt.Fprintf(&b, "  %s %s\n", citationStyle.Render(fmt.Sprintf("[%d]", i+1)), src.Title)
		fmt.Fprintf(&b, "      %s\n", dimStyle.Render(src.URI))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderRelated lists related questions, numbered for quick selection.
func RenderRelated(questions []string) string {
	if len(questions) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(relatedStyle.Render("  💡 Related questions") + "\n")
	for i, q := range questions {
		b.WriteString(relatedStyle.Render(fmt.Sprintf("     %d. %s", i+1, q)) + "\n")
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("     type 1-%d to ask", len(questions))))
	return b.String()
}

func RenderInsights(in *search.Insights) string {
	if in == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(sectionStyle.Render("  📊 Insights") + "\n")
	fmt.Fprintf(&b, "    %s %s\n", field("Sentiment"), SentimentLabel(in.Sentiment))
	fmt.Fprintf(&b, "    %s %s\n", field("Trend"), TrendinessLabel(in.Trendiness))
	if len(in.Keywords) > 0 {
		fmt.Fprintf(&b, "    %s %s\n", field("Keywords"), strings.Join(in.Keywords, ", "))
	}
	if len(in.Entities) > 0 {
		names := make([]string, len(in.Entities))
		for i, e := range in.Entities {
			names[i] = fmt.Sprintf("%s (%s)", e.Name, e.Type)
		}
		fmt.Fprintf(&b, "    %s %s\n", field("Entities"), strings.Join(names, ", "))
	}
	for _, p := range in.SummaryPoints {
		b.WriteString("    • " + p + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func RenderFactCheck(res *search.FactCheckResult) string {
	if res == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(sectionStyle.Render("  🔎 Fact check") + "  " + ConfidenceLabel(res.OverallConfidence) + "\n")
	if len(res.Claims) == 0 {
		b.WriteString(dimStyle.Render("    No factual claims found."))
		return b.String()
	}
	for _, c := range res.Claims {
		fmt.Fprintf(&b, "    %s  %s\n", ClaimStatusLabel(c.Status), c.Claim)
		if c.Explanation != "" {
			b.WriteString(dimStyle.Render("       ↳ "+c.Explanation) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func field(name string) string {
	return dimStyle.Render(fmt.Sprintf("%-10s", name))
}

// wrap word-wraps styled text to width, keeping ANSI sequences intact.
func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 3 || len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
