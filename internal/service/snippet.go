package service

import (
	"regexp"
	"strings"
)

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

var htmlEntities = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&nbsp;", " ",
)

// CleanSnippet flattens a source excerpt onto one line. Grounding excerpts
// are sometimes scraped HTML, so tags are dropped and common entities
// decoded.
func CleanSnippet(s string) string {
	for _, br := range []string{"<br/>", "<br>", "<br />"} {
		s = strings.ReplaceAll(s, br, " ")
	}
	s = htmlTagRe.ReplaceAllString(s, "")
	s = htmlEntities.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
