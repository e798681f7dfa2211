// Package search turns user queries into grounded, cited answers and the
// follow-up analyses built on them.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"pulse-cli/internal/answer"
	"pulse-cli/internal/gemini"
	"pulse-cli/internal/retry"
)

// Backend is everything the front ends need from the answer backend.
type Backend interface {
	Search(ctx context.Context, query string, filters Filters) (answer.FragmentStream, error)
	Analyze(ctx context.Context, text string) (*Insights, error)
	RelatedQuestions(ctx context.Context, query string) ([]string, error)
	FactCheck(ctx context.Context, text string) (*FactCheckResult, error)
	Summarize(ctx context.Context, text string, detail SummaryDetail) (string, error)
}

type Entity struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

type Insights struct {
	Sentiment     string   `json:"sentiment" yaml:"sentiment"`
	Keywords      []string `json:"keywords" yaml:"keywords"`
	Entities      []Entity `json:"entities" yaml:"entities"`
	SummaryPoints []string `json:"summaryPoints" yaml:"summary_points"`
	Trendiness    string   `json:"trendiness" yaml:"trendiness"`
}

type Claim struct {
	Claim       string `json:"claim" yaml:"claim"`
	Status      string `json:"status" yaml:"status"`
	Explanation string `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

type FactCheckResult struct {
	OverallConfidence string  `json:"overallConfidence" yaml:"overall_confidence"`
	Claims            []Claim `json:"claims" yaml:"claims"`
}

const maxRelatedQuestions = 3

var insightsSchema = &gemini.Schema{
	Type: "OBJECT",
	Properties: map[string]*gemini.Schema{
		"sentiment": {Type: "STRING", Description: `Overall sentiment: "Positive", "Neutral", "Negative", or "Mixed".`},
		"keywords":  {Type: "ARRAY", Description: "Top 5 relevant keywords.", Items: &gemini.Schema{Type: "STRING"}},
		"entities": {
			Type:        "ARRAY",
			Description: "List of named entities.",
			Items: &gemini.Schema{
				Type: "OBJECT",
				Properties: map[string]*gemini.Schema{
					"name": {Type: "STRING"},
					"type": {Type: "STRING", Description: `"Person", "Organization", "Location", or "Other".`},
				},
				Required: []string{"name", "type"},
			},
		},
		"summaryPoints": {Type: "ARRAY", Description: "3-4 key summary bullet points.", Items: &gemini.Schema{Type: "STRING"}},
		"trendiness":    {Type: "STRING", Description: `Trendiness of the topic: "Trending", "Stable", "Niche", "Unspecified".`},
	},
	Required: []string{"sentiment", "keywords", "entities", "summaryPoints", "trendiness"},
}

var relatedSchema = &gemini.Schema{
	Type: "OBJECT",
	Properties: map[string]*gemini.Schema{
		"questions": {Type: "ARRAY", Items: &gemini.Schema{Type: "STRING"}},
	},
}

type Options struct {
	Model          string
	ReasoningModel string
	Logger         *zap.Logger
	// Retry overrides the default retry policy. Its Retryable and Notify
	// are replaced by the service.
	Retry *retry.Policy
}

// Service implements Backend over the Gemini API.
type Service struct {
	client         *gemini.Client
	model          string
	reasoningModel string
	retry          retry.Policy
	log            *zap.Logger
}

var _ Backend = (*Service)(nil)

func NewService(client *gemini.Client, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	p := retry.Default(gemini.IsRetryable)
	if opts.Retry != nil {
		p = *opts.Retry
		p.Retryable = gemini.IsRetryable
	}
	return &Service{
		client:         client,
		model:          opts.Model,
		reasoningModel: opts.ReasoningModel,
		retry:          p,
		log:            log,
	}
}

func (s *Service) policy(op string) retry.Policy {
	p := s.retry
	p.Notify = func(err error, attempt int, wait time.Duration) {
		s.log.Warn("rate limited, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.MaxAttempts),
			zap.Duration("wait", wait),
			zap.Error(err))
	}
	return p
}

// exhausted maps a rate-limit error that survived every retry to
// ErrRateLimited.
func (s *Service) exhausted(op string, err error) error {
	if err == nil {
		return nil
	}
	if gemini.IsRetryable(err) {
		s.log.Error("rate limit retries exhausted", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s: %w", op, gemini.ErrRateLimited)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Search opens a grounded answer stream for query. Opening the stream is
// retried; fragments are never replayed.
func (s *Service) Search(ctx context.Context, query string, filters Filters) (answer.FragmentStream, error) {
	req := gemini.Prompt(s.model, UserQuery(query, filters)).
		WithSystem(SystemInstruction()).
		WithSearch()

	stream, err := retry.Do(ctx, s.policy("search"), func(ctx context.Context) (*gemini.Stream, error) {
		return s.client.StreamGenerate(ctx, req)
	})
	if err != nil {
		return nil, s.exhausted("search", err)
	}
	s.log.Info("search started", zap.String("model", s.model), zap.Int("query_len", len(query)))
	return stream, nil
}

// Collect runs a detailed search and returns the whole answer once the
// stream ends.
func (s *Service) Collect(ctx context.Context, query string) (answer.Snapshot, error) {
	stream, err := s.Search(ctx, query, DetailedFilters())
	if err != nil {
		return answer.Snapshot{}, err
	}
	snap, err := answer.NewAccumulator(s.log).Run(ctx, stream, nil)
	snap.Text = strings.TrimSpace(snap.Text)
	return snap, err
}

func (s *Service) Analyze(ctx context.Context, text string) (*Insights, error) {
	req := gemini.Prompt(s.model, analyzePrompt(text)).WithJSON(insightsSchema)
	out, err := retry.Do(ctx, s.policy("analyze"), func(ctx context.Context) (*Insights, error) {
		var in Insights
		if err := s.client.GenerateJSON(ctx, req, &in); err != nil {
			return nil, err
		}
		return &in, nil
	})
	if err != nil {
		return nil, s.exhausted("analyzing answer", err)
	}
	return out, nil
}

// RelatedQuestions suggests follow-up questions. Failures other than
// cancellation yield an empty list.
func (s *Service) RelatedQuestions(ctx context.Context, query string) ([]string, error) {
	req := gemini.Prompt(s.model, relatedPrompt(query)).WithJSON(relatedSchema)
	out, err := retry.Do(ctx, s.policy("related"), func(ctx context.Context) ([]string, error) {
		var resp struct {
			Questions []string `json:"questions"`
		}
		if err := s.client.GenerateJSON(ctx, req, &resp); err != nil {
			return nil, err
		}
		return resp.Questions, nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		s.log.Warn("related questions unavailable", zap.Error(err))
		return []string{}, nil
	}

	questions := make([]string, 0, len(out))
	for _, q := range out {
		if q = strings.TrimSpace(q); q != "" {
			questions = append(questions, q)
		}
		if len(questions) == maxRelatedQuestions {
			break
		}
	}
	return questions, nil
}

// FactCheck grades the claims in text with the reasoning model, grounded on
// search. The search tool cannot be combined with a response schema, so the
// shape is requested in the prompt.
func (s *Service) FactCheck(ctx context.Context, text string) (*FactCheckResult, error) {
	req := gemini.Prompt(s.reasoningModel, factCheckPrompt(text)).WithSearch()
	out, err := retry.Do(ctx, s.policy("factcheck"), func(ctx context.Context) (*FactCheckResult, error) {
		var res FactCheckResult
		if err := s.client.GenerateJSON(ctx, req, &res); err != nil {
			return nil, err
		}
		return &res, nil
	})
	if err != nil {
		return nil, s.exhausted("fact-checking", err)
	}
	return out, nil
}

func (s *Service) Summarize(ctx context.Context, text string, detail SummaryDetail) (string, error) {
	if detail != DetailDetailed {
		detail = DetailBrief
	}
	req := gemini.Prompt(s.model, summarizePrompt(text, detail))
	out, err := retry.Do(ctx, s.policy("summarize"), func(ctx context.Context) (string, error) {
		resp, err := s.client.Generate(ctx, req)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(resp.Text()), nil
	})
	if err != nil {
		return "", s.exhausted("summarizing", err)
	}
	if out == "" {
		return "", fmt.Errorf("summarizing: empty answer")
	}
	return out, nil
}
