package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"

	"go.uber.org/zap"

	"pulse-cli/internal/answer"
)

// sseReader reads server-sent events, returning the joined data lines of
// each event.
type sseReader struct {
	r *bufio.Reader
}

func newSSEReader(r io.Reader) *sseReader {
	return &sseReader{r: bufio.NewReaderSize(r, 64*1024)}
}

func (s *sseReader) next() ([]byte, error) {
	var data [][]byte
	for {
		line, err := s.r.ReadBytes('\n')
		if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
			if errors.Is(err, io.EOF) && len(data) > 0 {
				return bytes.Join(data, []byte("\n")), nil
			}
			return nil, err
		}
		line = bytes.TrimRight(line, "\r\n")

		if len(line) == 0 {
			if len(data) > 0 {
				return bytes.Join(data, []byte("\n")), nil
			}
			if err != nil {
				return nil, err
			}
			continue
		}
		if bytes.HasPrefix(line, []byte("data:")) {
			data = append(data, bytes.TrimSpace(line[5:]))
		}
		// event:, id:, retry: and comments are not used by this API
	}
}

// Stream is a live streamGenerateContent response. It implements
// answer.FragmentStream.
type Stream struct {
	body io.ReadCloser
	sse  *sseReader
	log  *zap.Logger

	// Usage is the token usage reported by the final event, if any.
	Usage *UsageMetadata
	// FinishReason is the last finish reason seen.
	FinishReason string
}

var _ answer.FragmentStream = (*Stream)(nil)

func newStream(body io.ReadCloser, log *zap.Logger) *Stream {
	return &Stream{body: body, sse: newSSEReader(body), log: log}
}

// Next returns the next fragment, or io.EOF when the response is complete.
// Malformed events are skipped; an error event ends the stream with an
// *APIError.
func (s *Stream) Next(ctx context.Context) (answer.Fragment, error) {
	for {
		if err := ctx.Err(); err != nil {
			return answer.Fragment{}, err
		}
		data, err := s.sse.next()
		if err != nil {
			return answer.Fragment{}, err
		}
		if bytes.Equal(data, []byte("[DONE]")) {
			return answer.Fragment{}, io.EOF
		}

		var resp GenerateResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			s.log.Debug("skipping malformed stream event", zap.Error(err), zap.Int("bytes", len(data)))
			continue
		}
		if resp.Error != nil {
			return answer.Fragment{}, resp.Error.toAPIError(0)
		}
		if resp.UsageMetadata != nil {
			s.Usage = resp.UsageMetadata
		}
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
			s.FinishReason = resp.Candidates[0].FinishReason
		}
		return resp.Fragment(), nil
	}
}

func (s *Stream) Close() error {
	return s.body.Close()
}
