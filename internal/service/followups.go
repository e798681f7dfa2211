package service

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"pulse-cli/internal/search"
)

// FollowUps holds the related questions and insights fetched after an
// answer finishes. Each half fails on its own.
type FollowUps struct {
	Related     []string
	RelatedErr  error
	Insights    *search.Insights
	InsightsErr error
	// Skipped is set when there was no answer to follow up on.
	Skipped bool
}

// RunFollowUps fetches related questions for query and insights for text
// concurrently. Nothing is fetched when text is blank.
func RunFollowUps(ctx context.Context, b search.Backend, query, text string) FollowUps {
	var out FollowUps
	if strings.TrimSpace(text) == "" {
		out.Skipped = true
		return out
	}

	var g errgroup.Group
	g.Go(func() error {
		out.Related, out.RelatedErr = b.RelatedQuestions(ctx, query)
		return nil
	})
	g.Go(func() error {
		out.Insights, out.InsightsErr = b.Analyze(ctx, text)
		return nil
	})
	_ = g.Wait()
	return out
}

// PickRelated resolves a 1-based choice like "2" to a related question.
func PickRelated(related []string, input string) (string, bool) {
	input = strings.TrimSpace(input)
	if len(input) != 1 || input[0] < '1' || input[0] > '9' {
		return "", false
	}
	n := int(input[0] - '0')
	if n > len(related) {
		return "", false
	}
	return related[n-1], true
}
