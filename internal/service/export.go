package service

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pulse-cli/internal/answer"
	"pulse-cli/internal/search"
)

const shareMaxRunes = 280

var paragraphBreakRe = regexp.MustCompile(`(\n\s*){2,}`)

// Result is everything known about one answered query.
type Result struct {
	ID        string                  `json:"id,omitempty" yaml:"id,omitempty"`
	Query     string                  `json:"query" yaml:"query"`
	CreatedAt time.Time               `json:"created_at" yaml:"created_at"`
	Filters   map[string]string       `json:"filters,omitempty" yaml:"filters,omitempty"`
	Answer    string                  `json:"answer" yaml:"answer"`
	Sources   []answer.Source         `json:"sources" yaml:"sources"`
	Related   []string                `json:"related,omitempty" yaml:"related,omitempty"`
	Insights  *search.Insights        `json:"insights,omitempty" yaml:"insights,omitempty"`
	FactCheck *search.FactCheckResult `json:"fact_check,omitempty" yaml:"fact_check,omitempty"`
	Summary   string                  `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// ExportMarkdown renders the answer as a markdown document followed by a
// numbered source list whose numbers match the inline citations.
func ExportMarkdown(query string, snap answer.Snapshot) string {
	var b strings.Builder
	if q := strings.TrimSpace(query); q != "" {
		fmt.Fprintf(&b, "# %s\n\n", q)
	}
	b.WriteString(strings.TrimSpace(snap.Text))
	b.WriteString("\n")

	if len(snap.Sources) > 0 {
		b.WriteString("\n## Sources\n\n")
		for i, src := range snap.Sources {
			fmt.Fprintf(&b, "%d. [%s](%s)\n", i+1, src.Title, src.URI)
			if snippet := CleanSnippet(src.Snippet); snippet != "" {
				fmt.Fprintf(&b, "   > %s\n", snippet)
			}
		}
	}
	return b.String()
}

// ShareSummary is a short plain-text version of the answer suitable for
// pasting into a chat: the question, the opening paragraph and the top
// source.
func ShareSummary(query string, snap answer.Snapshot) string {
	var b strings.Builder
	if q := strings.TrimSpace(query); q != "" {
		fmt.Fprintf(&b, "Q: %s\n", q)
	}
	if lead := leadParagraph(snap.Text); lead != "" {
		fmt.Fprintf(&b, "A: %s\n", truncateRunes(lead, shareMaxRunes))
	}
	switch n := len(snap.Sources); n {
	case 0:
	case 1:
		fmt.Fprintf(&b, "Source: %s\n", snap.Sources[0].URI)
	default:
		fmt.Fprintf(&b, "Sources: %s (+%d more)\n", snap.Sources[0].URI, n-1)
	}
	return b.String()
}

// leadParagraph returns the first block of text that is not a heading,
// joined onto one line.
func leadParagraph(text string) string {
	for _, block := range paragraphBreakRe.Split(text, -1) {
		block = strings.TrimSpace(block)
		if block == "" || strings.HasPrefix(block, "#") {
			continue
		}
		return strings.Join(strings.Fields(block), " ")
	}
	return ""
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-3])) + "..."
}

// ExportYAML dumps r as YAML.
func ExportYAML(r Result) ([]byte, error) {
	out, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding yaml: %w", err)
	}
	return out, nil
}

// WriteExport writes r to path, as YAML for .yaml/.yml files and markdown
// otherwise.
func WriteExport(path string, r Result) error {
	var data []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var err error
		if data, err = ExportYAML(r); err != nil {
			return err
		}
	default:
		data = []byte(ExportMarkdown(r.Query, answer.Snapshot{Text: r.Answer, Sources: r.Sources}))
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}
