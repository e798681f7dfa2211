package render

import (
	"strconv"
	"strings"

	"pulse-cli/internal/answer"
)

// Block is a block-level node of a rendered answer: *Heading, *Paragraph,
// *BulletList or *CitationBlock.
type Block interface {
	block()
}

type Heading struct {
	Level   int
	Inlines []Inline
}

type Paragraph struct {
	Inlines []Inline
}

type BulletList struct {
	Items [][]Inline
}

// CitationBlock is a resolved citation promoted to its own block between
// paragraphs of flowing text.
type CitationBlock struct {
	Number int
	Source answer.Source
}

func (*Heading) block()       {}
func (*Paragraph) block()     {}
func (*BulletList) block()    {}
func (*CitationBlock) block() {}

// Inline is a span inside a block: Text, Highlight, Citation or
// UnresolvedCitation.
type Inline interface {
	inline()
}

type Text struct {
	Value string
}

// Highlight is text matching the active highlight term.
type Highlight struct {
	Value string
}

// Citation is a resolved citation nested in a heading or list item.
type Citation struct {
	Number int
	Source answer.Source
}

// UnresolvedCitation is a citation whose source has not arrived (yet).
type UnresolvedCitation struct {
	Number int
}

func (Text) inline()               {}
func (Highlight) inline()          {}
func (Citation) inline()           {}
func (UnresolvedCitation) inline() {}

// PlainText flattens inlines back to text, writing citations as [n].
func PlainText(inlines []Inline) string {
	var b strings.Builder
	for _, in := range inlines {
		switch v := in.(type) {
		case Text:
			b.WriteString(v.Value)
		case Highlight:
			b.WriteString(v.Value)
		case Citation:
			b.WriteString("[" + strconv.Itoa(v.Number) + "]")
		case UnresolvedCitation:
			b.WriteString("[" + strconv.Itoa(v.Number) + "]")
		}
	}
	return b.String()
}
