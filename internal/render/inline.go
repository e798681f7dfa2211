package render

import (
	"regexp"
	"strconv"
	"strings"
)

// citationPattern matches [n] with optional whitespace inside the brackets.
var citationPattern = regexp.MustCompile(`\[\s*(\d+)\s*\]`)

type segment struct {
	text   string
	number int
	cite   bool
}

// splitCitations cuts s into alternating plain and citation segments.
// Anything that is not a well-formed citation stays in the plain text.
func splitCitations(s string) []segment {
	var segs []segment
	last := 0
	for _, m := range citationPattern.FindAllStringSubmatchIndex(s, -1) {
		n, err := strconv.Atoi(s[m[2]:m[3]])
		if err != nil {
			// too many digits for an int; left as text
			continue
		}
		if m[0] > last {
			segs = append(segs, segment{text: s[last:m[0]]})
		}
		segs = append(segs, segment{text: s[m[0]:m[1]], number: n, cite: true})
		last = m[1]
	}
	if last < len(s) {
		segs = append(segs, segment{text: s[last:]})
	}
	return segs
}

// highlighter wraps case-insensitive literal matches of a term. A nil
// highlighter passes text through.
type highlighter struct {
	re *regexp.Regexp
}

func newHighlighter(term string) *highlighter {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(term))
	if err != nil {
		return nil
	}
	return &highlighter{re: re}
}

// split appends the inlines for plain text s to out.
func (h *highlighter) split(s string, out []Inline) []Inline {
	if s == "" {
		return out
	}
	if h == nil {
		return append(out, Text{Value: s})
	}
	last := 0
	for _, m := range h.re.FindAllStringIndex(s, -1) {
		if m[0] > last {
			out = append(out, Text{Value: s[last:m[0]]})
		}
		out = append(out, Highlight{Value: s[m[0]:m[1]]})
		last = m[1]
	}
	if last < len(s) {
		out = append(out, Text{Value: s[last:]})
	}
	return out
}
