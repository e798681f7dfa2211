package answer

// Source is a web document cited by an answer.
type Source struct {
	URI     string `json:"uri" yaml:"uri"`
	Title   string `json:"title" yaml:"title"`
	Snippet string `json:"snippet,omitempty" yaml:"snippet,omitempty"`
}

// SourceSet keeps sources in first-seen order, deduplicated by URI.
// Position n (1-based) is the source that citation [n] refers to.
type SourceSet struct {
	order []Source
	byURI map[string]int
}

// Add appends src if its URI has not been seen. A repeated URI is ignored
// and the first occurrence keeps its fields.
func (s *SourceSet) Add(src Source) bool {
	if s.byURI == nil {
		s.byURI = make(map[string]int)
	}
	if _, ok := s.byURI[src.URI]; ok {
		return false
	}
	s.byURI[src.URI] = len(s.order)
	s.order = append(s.order, src)
	return true
}

func (s *SourceSet) Len() int { return len(s.order) }

// At returns the source for citation number n.
func (s *SourceSet) At(n int) (Source, bool) {
	if n < 1 || n > len(s.order) {
		return Source{}, false
	}
	return s.order[n-1], true
}

// Lookup returns the 1-based position of uri, or 0.
func (s *SourceSet) Lookup(uri string) int {
	if i, ok := s.byURI[uri]; ok {
		return i + 1
	}
	return 0
}

// List returns a copy of the sources in citation order.
func (s *SourceSet) List() []Source {
	out := make([]Source, len(s.order))
	copy(out, s.order)
	return out
}
