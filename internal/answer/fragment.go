package answer

import (
	"context"
	"io"
)

// Fragment is one decoded piece of a streamed answer.
type Fragment struct {
	TextDelta       string
	GroundingChunks []GroundingChunk
}

// GroundingChunk is the loosely populated source metadata carried by a
// fragment. Empty strings mean the backend omitted the field.
type GroundingChunk struct {
	URI     string
	Title   string
	Snippet string
}

// Source reports the chunk as a source. Chunks without a URI or title
// are not sources.
func (c GroundingChunk) Source() (Source, bool) {
	if c.URI == "" || c.Title == "" {
		return Source{}, false
	}
	return Source{URI: c.URI, Title: c.Title, Snippet: c.Snippet}, true
}

// FragmentStream yields fragments in arrival order. Next returns io.EOF
// once the stream has ended cleanly.
type FragmentStream interface {
	Next(ctx context.Context) (Fragment, error)
	Close() error
}

// SliceStream replays a fixed list of fragments, optionally failing with
// Err after the last one. Used by tests and offline replays.
type SliceStream struct {
	Fragments []Fragment
	Err       error

	pos    int
	closed bool
}

func (s *SliceStream) Next(ctx context.Context) (Fragment, error) {
	if err := ctx.Err(); err != nil {
		return Fragment{}, err
	}
	if s.closed {
		return Fragment{}, io.EOF
	}
	if s.pos >= len(s.Fragments) {
		if s.Err != nil {
			return Fragment{}, s.Err
		}
		return Fragment{}, io.EOF
	}
	f := s.Fragments[s.pos]
	s.pos++
	return f, nil
}

func (s *SliceStream) Close() error {
	s.closed = true
	return nil
}
