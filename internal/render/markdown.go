// Package render turns streamed answer text into a block tree with
// citations resolved against the sources seen so far.
package render

import (
	"regexp"
	"strings"
	"unicode"

	"pulse-cli/internal/answer"
)

// blockSeparator matches runs of two or more line breaks, with any
// whitespace between them.
var blockSeparator = regexp.MustCompile(`(\n\s*){2,}`)

// Render builds the block tree for text. Citation [n] resolves to
// sources[n-1]; a number with no source yet renders as an
// UnresolvedCitation. A non-empty highlight marks case-insensitive matches
// of the literal term in plain text. Render is pure and safe to call on
// every streamed snapshot.
func Render(text string, sources []answer.Source, highlight string) []Block {
	r := renderer{sources: sources, hl: newHighlighter(highlight)}

	var blocks []Block
	for _, raw := range blockSeparator.Split(text, -1) {
		blocks = r.appendBlock(blocks, strings.TrimSpace(raw))
	}
	return blocks
}

// RenderSnapshot is Render over an accumulator snapshot.
func RenderSnapshot(s answer.Snapshot, highlight string) []Block {
	return Render(s.Text, s.Sources, highlight)
}

type renderer struct {
	sources []answer.Source
	hl      *highlighter
}

func (r *renderer) resolve(n int) (answer.Source, bool) {
	if n < 1 || n > len(r.sources) {
		return answer.Source{}, false
	}
	return r.sources[n-1], true
}

func (r *renderer) appendBlock(blocks []Block, b string) []Block {
	if b == "" {
		return blocks
	}
	switch {
	case strings.HasPrefix(b, "## "):
		return r.heading(blocks, 2, b[3:])
	case strings.HasPrefix(b, "# "):
		return r.heading(blocks, 1, b[2:])
	case isBulletList(b):
		return append(blocks, r.list(b))
	default:
		return append(blocks, r.flowing(b)...)
	}
}

// heading takes the first line as the title. Lines below it are
// classified as a block of their own.
func (r *renderer) heading(blocks []Block, level int, rest string) []Block {
	title, body, _ := strings.Cut(rest, "\n")
	blocks = append(blocks, &Heading{Level: level, Inlines: r.inlines(strings.TrimSpace(title))})
	return r.appendBlock(blocks, strings.TrimSpace(body))
}

func isBulletList(b string) bool {
	for _, line := range strings.Split(b, "\n") {
		line = strings.TrimLeft(line, " \t")
		if !strings.HasPrefix(line, "* ") && !strings.HasPrefix(line, "- ") {
			return false
		}
	}
	return true
}

func (r *renderer) list(b string) *BulletList {
	lines := strings.Split(b, "\n")
	list := &BulletList{Items: make([][]Inline, 0, len(lines))}
	for _, line := range lines {
		line = strings.TrimLeft(line, " \t")
		list.Items = append(list.Items, r.inlines(strings.TrimSpace(line[2:])))
	}
	return list
}

// inlines processes text inside a heading or list item, where resolved
// citations stay nested.
func (r *renderer) inlines(s string) []Inline {
	var out []Inline
	for _, seg := range splitCitations(s) {
		switch {
		case !seg.cite:
			out = r.hl.split(seg.text, out)
		default:
			if src, ok := r.resolve(seg.number); ok {
				out = append(out, Citation{Number: seg.number, Source: src})
			} else {
				out = append(out, UnresolvedCitation{Number: seg.number})
			}
		}
	}
	return out
}

// flowing splits a text block into paragraphs around its resolved
// citations.
func (r *renderer) flowing(b string) []Block {
	var blocks []Block
	var run []Inline

	flush := func() {
		if p := trimRun(run); len(p) > 0 {
			blocks = append(blocks, &Paragraph{Inlines: p})
		}
		run = nil
	}

	for _, seg := range splitCitations(b) {
		if !seg.cite {
			run = r.hl.split(seg.text, run)
			continue
		}
		if src, ok := r.resolve(seg.number); ok {
			flush()
			blocks = append(blocks, &CitationBlock{Number: seg.number, Source: src})
			continue
		}
		run = append(run, UnresolvedCitation{Number: seg.number})
	}
	flush()
	return blocks
}

// trimRun strips whitespace at the edges of a paragraph run and drops it
// entirely when nothing visible is left.
func trimRun(run []Inline) []Inline {
	for len(run) > 0 {
		t, ok := run[0].(Text)
		if !ok {
			break
		}
		t.Value = strings.TrimLeftFunc(t.Value, unicode.IsSpace)
		if t.Value != "" {
			run[0] = t
			break
		}
		run = run[1:]
	}
	for len(run) > 0 {
		t, ok := run[len(run)-1].(Text)
		if !ok {
			break
		}
		t.Value = strings.TrimRightFunc(t.Value, unicode.IsSpace)
		if t.Value != "" {
			run[len(run)-1] = t
			break
		}
		run = run[:len(run)-1]
	}
	return run
}
