package answer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// Snapshot is the observable state of an answer at one point in its stream.
// Snapshots are copies and remain valid after the accumulator moves on.
type Snapshot struct {
	Text    string
	Sources []Source
}

// Empty reports whether no answer text has arrived.
func (s Snapshot) Empty() bool { return strings.TrimSpace(s.Text) == "" }

// StreamError is returned when the fragment stream fails before it ends.
// Partial holds everything accumulated up to the failure.
type StreamError struct {
	Partial Snapshot
	Err     error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream interrupted after %d bytes: %v", len(e.Partial.Text), e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// Accumulator builds one answer from its fragments. It is owned by a single
// query session and is not safe for concurrent use.
type Accumulator struct {
	text    strings.Builder
	sources SourceSet
	log     *zap.Logger
}

func NewAccumulator(log *zap.Logger) *Accumulator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Accumulator{log: log}
}

// Apply folds one fragment into the answer and reports whether the
// observable state changed.
func (a *Accumulator) Apply(f Fragment) bool {
	changed := f.TextDelta != ""
	a.text.WriteString(f.TextDelta)

	for _, chunk := range f.GroundingChunks {
		src, ok := chunk.Source()
		if !ok {
			a.log.Debug("skipping grounding chunk without uri or title", zap.String("uri", chunk.URI))
			continue
		}
		if a.sources.Add(src) {
			changed = true
		}
	}
	return changed
}

func (a *Accumulator) Snapshot() Snapshot {
	return Snapshot{Text: a.text.String(), Sources: a.sources.List()}
}

// Run drains stream into the accumulator, calling observe after every
// fragment that changed the answer. It returns the final snapshot along
// with ctx.Err() on cancellation or a *StreamError if the stream failed.
// No fragment received after cancellation is applied.
func (a *Accumulator) Run(ctx context.Context, stream FragmentStream, observe func(Snapshot)) (Snapshot, error) {
	defer stream.Close()

	fragments := 0
	for {
		if err := ctx.Err(); err != nil {
			return a.Snapshot(), err
		}

		f, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			a.log.Debug("stream complete",
				zap.Int("fragments", fragments),
				zap.Int("sources", a.sources.Len()))
			return a.Snapshot(), nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return a.Snapshot(), ctxErr
			}
			snap := a.Snapshot()
			a.log.Warn("stream failed", zap.Error(err), zap.Int("fragments", fragments))
			return snap, &StreamError{Partial: snap, Err: err}
		}

		// The fragment may have raced with cancellation.
		if err := ctx.Err(); err != nil {
			return a.Snapshot(), err
		}

		fragments++
		if a.Apply(f) && observe != nil {
			observe(a.Snapshot())
		}
	}
}
