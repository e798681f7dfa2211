package search

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

type SummaryLength string

const (
	SummaryBrief    SummaryLength = "brief"
	SummaryNormal   SummaryLength = "normal"
	SummaryDetailed SummaryLength = "detailed"
)

// SummaryDetail is the level requested from Summarize.
type SummaryDetail string

const (
	DetailBrief    SummaryDetail = "brief"
	DetailDetailed SummaryDetail = "detailed"
)

// Filters shape the search prompt. The zero value means "no constraint"
// for every field except those given defaults by DefaultFilters.
type Filters struct {
	ExactPhrase    string        `json:"exact_phrase,omitempty" yaml:"exact_phrase,omitempty"`
	ExcludeWord    string        `json:"exclude_word,omitempty" yaml:"exclude_word,omitempty"`
	TimeRange      string        `json:"time_range,omitempty" yaml:"time_range,omitempty"`
	Location       string        `json:"location,omitempty" yaml:"location,omitempty"`
	SummaryLength  SummaryLength `json:"summary,omitempty" yaml:"summary,omitempty"`
	ResultLanguage string        `json:"language,omitempty" yaml:"language,omitempty"`
	MinSources     int           `json:"min_sources,omitempty" yaml:"min_sources,omitempty"`
	Tone           string        `json:"tone,omitempty" yaml:"tone,omitempty"`
	Format         string        `json:"format,omitempty" yaml:"format,omitempty"`
	SourceType     string        `json:"source,omitempty" yaml:"source,omitempty"`
	SiteSearch     string        `json:"site,omitempty" yaml:"site,omitempty"`
}

func DefaultFilters() Filters {
	return Filters{
		SummaryLength:  SummaryNormal,
		ResultLanguage: "ar",
		Format:         "paragraphs",
		SourceType:     "any",
	}
}

// DetailedFilters are used when an answer is collected for another step
// rather than shown to the user.
func DetailedFilters() Filters {
	f := DefaultFilters()
	f.SummaryLength = SummaryDetailed
	return f
}

type filterField struct {
	help    string
	choices []string
	get     func(*Filters) string
	set     func(*Filters, string)
}

var filterFields = map[string]filterField{
	"exact": {
		help: "phrase the answer must contain",
		get:  func(f *Filters) string { return f.ExactPhrase },
		set:  func(f *Filters, v string) { f.ExactPhrase = v },
	},
	"exclude": {
		help: "word or topic to leave out",
		get:  func(f *Filters) string { return f.ExcludeWord },
		set:  func(f *Filters, v string) { f.ExcludeWord = v },
	},
	"time": {
		help:    "only recent results",
		choices: []string{"day", "week", "month"},
		get:     func(f *Filters) string { return f.TimeRange },
		set:     func(f *Filters, v string) { f.TimeRange = v },
	},
	"location": {
		help: "focus results on a place",
		get:  func(f *Filters) string { return f.Location },
		set:  func(f *Filters, v string) { f.Location = v },
	},
	"summary": {
		help:    "answer length",
		choices: []string{"brief", "normal", "detailed"},
		get:     func(f *Filters) string { return string(f.SummaryLength) },
		set:     func(f *Filters, v string) { f.SummaryLength = SummaryLength(v) },
	},
	"lang": {
		help:    "answer language",
		choices: []string{"ar", "en", "fr"},
		get:     func(f *Filters) string { return f.ResultLanguage },
		set:     func(f *Filters, v string) { f.ResultLanguage = v },
	},
	"min-sources": {
		help: "minimum number of distinct sources",
		get: func(f *Filters) string {
			if f.MinSources == 0 {
				return ""
			}
			return strconv.Itoa(f.MinSources)
		},
		set: func(f *Filters, v string) { f.MinSources, _ = strconv.Atoi(v) },
	},
	"tone": {
		help:    "answer tone",
		choices: []string{"professional", "casual", "academic", "simple"},
		get:     func(f *Filters) string { return f.Tone },
		set:     func(f *Filters, v string) { f.Tone = v },
	},
	"format": {
		help:    "answer layout",
		choices: []string{"paragraphs", "bullets", "table"},
		get:     func(f *Filters) string { return f.Format },
		set:     func(f *Filters, v string) { f.Format = v },
	},
	"source": {
		help:    "preferred kind of source",
		choices: []string{"any", "news", "academic", "government"},
		get:     func(f *Filters) string { return f.SourceType },
		set:     func(f *Filters, v string) { f.SourceType = v },
	},
	"site": {
		help: "restrict results to one site",
		get:  func(f *Filters) string { return f.SiteSearch },
		set:  func(f *Filters, v string) { f.SiteSearch = v },
	},
}

// FilterNames lists the settable filter names in display order.
func FilterNames() []string {
	return slices.Sorted(maps.Keys(filterFields))
}

// FilterHelp describes a filter and its accepted values.
func FilterHelp(name string) string {
	field, ok := filterFields[name]
	if !ok {
		return ""
	}
	if len(field.choices) == 0 {
		return field.help
	}
	return field.help + " (" + strings.Join(field.choices, "|") + ")"
}

// Set validates and assigns one filter by name. An empty value clears it
// back to its default.
func (f *Filters) Set(name, value string) error {
	field, ok := filterFields[name]
	if !ok {
		return fmt.Errorf("unknown filter %q (valid: %s)", name, strings.Join(FilterNames(), ", "))
	}
	value = strings.TrimSpace(value)
	if value == "" {
		def := DefaultFilters()
		field.set(f, field.get(&def))
		return nil
	}

	if len(field.choices) > 0 {
		value = strings.ToLower(value)
		if !slices.Contains(field.choices, value) {
			return fmt.Errorf("invalid %s %q (valid: %s)", name, value, strings.Join(field.choices, ", "))
		}
	}
	if name == "min-sources" {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("min-sources must be a non-negative number, got %q", value)
		}
	}
	field.set(f, value)
	return nil
}

// Get returns the current value of a filter by name.
func (f *Filters) Get(name string) string {
	field, ok := filterFields[name]
	if !ok {
		return ""
	}
	return field.get(f)
}

// Values returns every filter that differs from its default, keyed by name.
func (f Filters) Values() map[string]string {
	def := DefaultFilters()
	out := make(map[string]string)
	for name, field := range filterFields {
		if v := field.get(&f); v != field.get(&def) {
			out[name] = v
		}
	}
	return out
}

// FromMap builds filters from stored name/value pairs on top of the
// defaults. Invalid entries are reported together; valid ones still apply.
func FromMap(m map[string]string) (Filters, error) {
	f := DefaultFilters()
	var bad []string
	for _, name := range slices.Sorted(maps.Keys(m)) {
		if err := f.Set(name, m[name]); err != nil {
			bad = append(bad, err.Error())
		}
	}
	if len(bad) > 0 {
		return f, fmt.Errorf("stored filters: %s", strings.Join(bad, "; "))
	}
	return f, nil
}
