package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse-cli/internal/answer"
	"pulse-cli/internal/gemini"
	"pulse-cli/internal/retry"
)

func newTestService(t *testing.T, h http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	client, err := gemini.New(gemini.Options{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	fast := retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}
	return NewService(client, Options{
		Model:          "fast",
		ReasoningModel: "deep",
		Retry:          &fast,
	})
}

func jsonAnswer(w http.ResponseWriter, text string) {
	resp := gemini.GenerateResponse{Candidates: []gemini.Candidate{{
		Content: &gemini.Content{Parts: []gemini.Part{{Text: text}}},
	}}}
	_ = json.NewEncoder(w).Encode(resp)
}

func rateLimited(w http.ResponseWriter) {
	w.WriteHeader(http.StatusTooManyRequests)
	fmt.Fprint(w, `{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`)
}

func TestSearch_StreamsWithPromptAndTool(t *testing.T) {
	var body map[string]any
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/fast:streamGenerateContent", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		fmt.Fprint(w, "data: "+`{"candidates":[{"content":{"parts":[{"text":"Cairo [1]"}]},"groundingMetadata":{"groundingChunks":[{"web":{"uri":"https://a","title":"A"}}]}}]}`+"\n\n")
	})

	f := DefaultFilters()
	f.TimeRange = "week"
	stream, err := svc.Search(context.Background(), "capital of egypt", f)
	require.NoError(t, err)

	snap, err := answer.NewAccumulator(nil).Run(context.Background(), stream, nil)
	require.NoError(t, err)
	assert.Equal(t, "Cairo [1]", snap.Text)
	assert.Len(t, snap.Sources, 1)

	assert.NotNil(t, body["systemInstruction"])
	assert.Len(t, body["tools"], 1)
	raw, _ := json.Marshal(body["contents"])
	assert.Contains(t, string(raw), "the past week")
}

func TestSearch_RetriesRateLimitThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			rateLimited(w)
			return
		}
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"ok\"}]}}]}\n\n")
	})

	stream, err := svc.Search(context.Background(), "q", DefaultFilters())
	require.NoError(t, err)
	defer stream.Close()
	assert.Equal(t, int32(3), calls.Load())
}

func TestSearch_ExhaustedRateLimit(t *testing.T) {
	var calls atomic.Int32
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		rateLimited(w)
	})

	stream, err := svc.Search(context.Background(), "q", DefaultFilters())
	assert.Nil(t, stream)
	require.ErrorIs(t, err, gemini.ErrRateLimited)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, gemini.ErrRateLimited.Error(), gemini.UserMessage(err))
}

func TestSearch_KeyErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"message":"API key not valid.","status":"INVALID_ARGUMENT"}}`)
	})

	_, err := svc.Search(context.Background(), "q", DefaultFilters())
	require.Error(t, err)
	assert.True(t, gemini.IsAPIKeyError(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestCollect(t *testing.T) {
	var prompt string
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		var req gemini.GenerateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompt = req.Contents[0].Parts[0].Text
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"  full answer \\n\"}]}}]}\n\n")
	})

	snap, err := svc.Collect(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "full answer", snap.Text)
	assert.Contains(t, prompt, "detailed, thorough")
}

func TestAnalyze(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		var req gemini.GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.GenerationConfig)
		assert.Equal(t, "application/json", req.GenerationConfig.ResponseMIMEType)
		assert.Contains(t, req.GenerationConfig.ResponseSchema.Required, "trendiness")

		jsonAnswer(w, `{"sentiment":"Positive","keywords":["nile"],"entities":[{"name":"Cairo","type":"Location"}],"summaryPoints":["a","b","c"],"trendiness":"Stable"}`)
	})

	in, err := svc.Analyze(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "Positive", in.Sentiment)
	assert.Equal(t, []Entity{{Name: "Cairo", Type: "Location"}}, in.Entities)
	assert.Len(t, in.SummaryPoints, 3)
}

func TestRelatedQuestions(t *testing.T) {
	tests := []struct {
		name  string
		reply func(w http.ResponseWriter)
		want  []string
	}{
		{"trimmed to three", func(w http.ResponseWriter) {
			jsonAnswer(w, `{"questions":["one"," ","two","three","four"]}`)
		}, []string{"one", "two", "three"}},
		{"garbage is empty", func(w http.ResponseWriter) { jsonAnswer(w, "no json here") }, []string{}},
		{"server error is empty", func(w http.ResponseWriter) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}, []string{}},
		{"exhausted is empty", rateLimited, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) { tt.reply(w) })
			got, err := svc.RelatedQuestions(context.Background(), "q")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRelatedQuestions_Canceled(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) { jsonAnswer(w, `{"questions":["x"]}`) })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.RelatedQuestions(ctx, "q")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFactCheck_UsesReasoningModelWithSearch(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/deep:generateContent", r.URL.Path)
		var req gemini.GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Tools, 1)
		assert.Nil(t, req.GenerationConfig)

		jsonAnswer(w, "```json\n"+`{"overallConfidence":"Medium","claims":[{"claim":"X is Y","status":"Single source","explanation":"only one outlet"}]}`+"\n```")
	})

	res, err := svc.FactCheck(context.Background(), "X is Y")
	require.NoError(t, err)
	assert.Equal(t, "Medium", res.OverallConfidence)
	require.Len(t, res.Claims, 1)
	assert.Equal(t, "Single source", res.Claims[0].Status)
}

func TestSummarize(t *testing.T) {
	var prompt string
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		var req gemini.GenerateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompt = req.Contents[0].Parts[0].Text
		jsonAnswer(w, "  short version  ")
	})

	got, err := svc.Summarize(context.Background(), "long text", "weird")
	require.NoError(t, err)
	assert.Equal(t, "short version", got)
	assert.True(t, strings.Contains(prompt, "should be brief"))

	_, err = svc.Summarize(context.Background(), "long text", DetailDetailed)
	require.NoError(t, err)
	assert.Contains(t, prompt, "should be detailed")
}

func TestSummarize_EmptyAnswer(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) { jsonAnswer(w, "   ") })
	_, err := svc.Summarize(context.Background(), "x", DetailBrief)
	assert.Error(t, err)
}
