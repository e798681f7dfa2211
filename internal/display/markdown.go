package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// ─── Markdown ───────────────────────────────────────────────────────────────
//
// Answer text goes through the citation renderer; markdown here covers the
// inline styling left inside text runs, pipe tables and whole documents
// such as summaries.

const (
	ansiReset     = "\033[0m"
	ansiBold      = "\033[1m"
	ansiItalic    = "\033[3m"
	ansiUnderline = "\033[4m"

	ansiHeading = "\033[1;97m"     // bold bright white
	ansiInfo    = "\033[38;5;39m"  // cyan 39, links
	ansiCode    = "\033[38;5;220m" // yellow 220, inline code
	ansiAccent  = "\033[38;5;73m"  // teal 73, borders and list numbers
	ansiBody    = "\033[38;5;252m" // light 252, body text
)

// RenderMarkdown renders a markdown document for the terminal with
// glamour, falling back to the line renderer if glamour fails.
func RenderMarkdown(md string, width int) string {
	if width <= 0 {
		width = defaultWidth
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		if out, err := r.Render(md); err == nil {
			return strings.TrimRight(out, "\n")
		}
	}
	return renderMarkdownLines(md)
}

func renderMarkdownLines(md string) string {
	lines := strings.Split(md, "\n")
	out := make([]string, 0, len(lines))
	inCode := false
	for _, line := range lines {
		out = append(out, renderMarkdownLine(line, &inCode))
	}
	return strings.Join(out, "\n")
}

func renderMarkdownLine(line string, inCode *bool) string {
	trimmed := strings.TrimSpace(line)

	if strings.HasPrefix(trimmed, "```") {
		*inCode = !*inCode
		if *inCode {
			return ansiAccent + "┌──" + ansiReset
		}
		return ansiAccent + "└──" + ansiReset
	}
	if *inCode {
		return ansiAccent + "│" + ansiReset + " " + ansiBody + line + ansiReset
	}

	if level := headingLevel(trimmed); level > 0 {
		return ansiHeading + trimmed[level+1:] + ansiReset
	}
	if trimmed == "---" || trimmed == "***" || trimmed == "___" {
		return ansiAccent + strings.Repeat("─", 40) + ansiReset
	}
	if strings.HasPrefix(trimmed, "> ") {
		return ansiAccent + "│" + ansiReset + " " + ansiBody + renderInlineMarkdown(trimmed[2:]) + ansiReset
	}

	pad := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
	if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") {
		return pad + ansiBody + "• " + renderInlineMarkdown(trimmed[2:]) + ansiReset
	}
	if num, rest, ok := numberedItem(trimmed); ok {
		return pad + ansiAccent + num + "." + ansiReset + " " + ansiBody + renderInlineMarkdown(rest) + ansiReset
	}
	return ansiBody + renderInlineMarkdown(line) + ansiReset
}

// headingLevel returns the number of leading '#' of an ATX heading, or 0.
func headingLevel(s string) int {
	n := 0
	for n < len(s) && n < 6 && s[n] == '#' {
		n++
	}
	if n == 0 || n >= len(s) || s[n] != ' ' {
		return 0
	}
	return n
}

func numberedItem(s string) (num, rest string, ok bool) {
	dot := strings.Index(s, ". ")
	if dot <= 0 || dot > 3 {
		return "", "", false
	}
	for _, c := range s[:dot] {
		if c < '0' || c > '9' {
			return "", "", false
		}
	}
	return s[:dot], s[dot+2:], true
}

// renderInlineMarkdown handles **bold**, *italic*, `code` and [text](url).
func renderInlineMarkdown(text string) string {
	var out strings.Builder
	i := 0
	for i < len(text) {
		if i+3 < len(text) && text[i] == '*' && text[i+1] == '*' {
			if end := strings.Index(text[i+2:], "**"); end > 0 {
				out.WriteString(ansiBold + renderInlineMarkdown(text[i+2:i+2+end]) + ansiReset)
				i += 4 + end
				continue
			}
		}

		if text[i] == '*' && (i == 0 || text[i-1] == ' ') {
			if end := strings.IndexByte(text[i+1:], '*'); end > 0 {
				out.WriteString(ansiItalic + text[i+1:i+1+end] + ansiReset)
				i += 2 + end
				continue
			}
		}

		if text[i] == '`' {
			if end := strings.IndexByte(text[i+1:], '`'); end >= 0 {
				out.WriteString(ansiCode + text[i+1:i+1+end] + ansiReset)
				i += 2 + end
				continue
			}
		}

		if text[i] == '[' {
			cb := strings.IndexByte(text[i:], ']')
			if cb > 1 && i+cb+1 < len(text) && text[i+cb+1] == '(' {
				if cp := strings.IndexByte(text[i+cb+1:], ')'); cp > 0 {
					label := text[i+1 : i+cb]
					url := text[i+cb+2 : i+cb+1+cp]
					out.WriteString(ansiUnderline + ansiInfo + label + ansiReset)
					out.WriteString(ansiInfo + " (" + url + ")" + ansiReset)
					i += cb + 1 + cp + 1
					continue
				}
			}
		}

		out.WriteByte(text[i])
		i++
	}
	return out.String()
}

// isPipeTable reports whether every non-blank line of s is a table row.
func isPipeTable(s string) bool {
	rows := 0
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "|") {
			return false
		}
		rows++
	}
	return rows >= 2
}

// renderTable draws a markdown pipe table with box characters, capping
// column widths so the table fits in maxWidth.
func renderTable(raw string, maxWidth int) string {
	type row struct {
		cells []string
		isSep bool
	}
	var rows []row
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.Trim(strings.TrimSpace(line), "|")
		if trimmed == "" {
			continue
		}
		parts := strings.Split(trimmed, "|")
		r := row{cells: make([]string, len(parts)), isSep: true}
		for i, p := range parts {
			r.cells[i] = strings.TrimSpace(p)
			if strings.Trim(r.cells[i], "-: ") != "" {
				r.isSep = false
			}
		}
		rows = append(rows, r)
	}
	if len(rows) == 0 {
		return ""
	}

	numCols := 0
	for _, r := range rows {
		numCols = max(numCols, len(r.cells))
	}
	widths := make([]int, numCols)
	for _, r := range rows {
		if r.isSep {
			continue
		}
		for i, cell := range r.cells {
			widths[i] = max(widths[i], len([]rune(cell)))
		}
	}

	const minColWidth = 6
	available := max(maxWidth-(3*numCols+1), numCols*minColWidth)
	total := 0
	for _, w := range widths {
		total += w
	}
	if total > available {
		// shrink the widest columns first
		colCap := minColWidth
		for c := minColWidth; ; c++ {
			sum := 0
			for _, w := range widths {
				sum += min(w, c)
			}
			if sum > available {
				break
			}
			colCap = c
		}
		for i := range widths {
			widths[i] = min(widths[i], colCap)
		}
	}

	border := func(left, mid, right string) string {
		var sb strings.Builder
		sb.WriteString(ansiAccent + left)
		for i, w := range widths {
			sb.WriteString(strings.Repeat("─", w+2))
			if i < len(widths)-1 {
				sb.WriteString(mid)
			}
		}
		sb.WriteString(right + ansiReset)
		return sb.String()
	}

	var out strings.Builder
	out.WriteString(border("┌", "┬", "┐") + "\n")
	headerDone := false
	for idx, r := range rows {
		if r.isSep {
			out.WriteString(border("├", "┼", "┤") + "\n")
			headerDone = true
			continue
		}
		if idx == 1 && !headerDone {
			out.WriteString(border("├", "┼", "┤") + "\n")
			headerDone = true
		}

		cellLines := make([][]string, numCols)
		height := 1
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(r.cells) {
				cell = r.cells[i]
			}
			cellLines[i] = wrapCell(cell, widths[i])
			height = max(height, len(cellLines[i]))
		}
		for l := 0; l < height; l++ {
			out.WriteString(ansiAccent + "│" + ansiReset)
			for i := 0; i < numCols; i++ {
				cell := ""
				if l < len(cellLines[i]) {
					cell = cellLines[i][l]
				}
				style := ansiBody
				if idx == 0 {
					style = ansiBold
				}
				pad := strings.Repeat(" ", widths[i]-len([]rune(cell)))
				fmt.Fprintf(&out, " %s%s%s%s %s│%s", style, cell, ansiReset, pad, ansiAccent, ansiReset)
			}
			out.WriteString("\n")
		}
	}
	out.WriteString(border("└", "┴", "┘"))
	return out.String()
}

// wrapCell splits text into lines of at most maxWidth runes, breaking at
// spaces in the second half of a line when possible.
func wrapCell(text string, maxWidth int) []string {
	r := []rune(text)
	if maxWidth <= 0 || len(r) <= maxWidth {
		return []string{text}
	}
	var lines []string
	for len(r) > maxWidth {
		split := maxWidth
		for split > maxWidth/2 && r[split] != ' ' {
			split--
		}
		if split <= maxWidth/2 {
			split = maxWidth
		}
		lines = append(lines, string(r[:split]))
		r = []rune(strings.TrimLeft(string(r[split:]), " "))
	}
	if len(r) > 0 {
		lines = append(lines, string(r))
	}
	return lines
}
