// Package gemini is a small REST client for the Gemini generateContent
// API, including its server-sent-event streaming variant.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type Options struct {
	APIKey            string
	BaseURL           string
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Logger            *zap.Logger
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *zap.Logger
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrNoAPIKey
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Minute}
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:    base,
		apiKey:     opts.APIKey,
		httpClient: hc,
		limiter:    rate.NewLimiter(limit, 1),
		log:        log,
	}, nil
}

func (c *Client) setHeaders(req *http.Request, stream bool) {
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
}

func (c *Client) endpoint(model, method string, query url.Values) string {
	u := c.baseURL + "/models/" + url.PathEscape(model) + ":" + method
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) newRequest(ctx context.Context, req GenerateRequest, method string, query url.Values, stream bool) (*http.Request, error) {
	if req.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(req.Model, method, query), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(httpReq, stream)
	return httpReq, nil
}

// Generate performs a non-streaming generateContent call.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	httpReq, err := c.newRequest(ctx, req, "generateContent", nil, false)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	c.log.Debug("generateContent",
		zap.String("model", req.Model),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseAPIError(resp.StatusCode, respBody)
	}

	var out GenerateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if out.Error != nil {
		return nil, out.Error.toAPIError(resp.StatusCode)
	}
	return &out, nil
}

// GenerateJSON performs a JSON-mode call and decodes the answer text into
// result.
func (c *Client) GenerateJSON(ctx context.Context, req GenerateRequest, result interface{}) error {
	resp, err := c.Generate(ctx, req)
	if err != nil {
		return err
	}
	text := stripCodeFence(resp.Text())
	if text == "" {
		return fmt.Errorf("parsing response: empty answer")
	}
	if err := json.Unmarshal([]byte(text), result); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// StreamGenerate opens a streamGenerateContent call. The returned stream
// must be closed. Canceling ctx aborts the stream.
func (c *Client) StreamGenerate(ctx context.Context, req GenerateRequest) (*Stream, error) {
	httpReq, err := c.newRequest(ctx, req, "streamGenerateContent", url.Values{"alt": {"sse"}}, true)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(resp.Body)
		return nil, parseAPIError(resp.StatusCode, errBody)
	}

	c.log.Debug("stream opened", zap.String("model", req.Model))
	return newStream(resp.Body, c.log), nil
}

// stripCodeFence removes a ```json fence some models wrap JSON answers in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

// Holder owns the active client and rebuilds it when the options it was
// built from change, such as after the API key is rotated.
type Holder struct {
	mu     sync.Mutex
	opts   Options
	client *Client
}

func (h *Holder) Client(opts Options) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.client != nil && h.opts == opts {
		return h.client, nil
	}
	c, err := New(opts)
	if err != nil {
		h.client = nil
		return nil, err
	}
	h.opts = opts
	h.client = c
	return c, nil
}

// Reset drops the cached client.
func (h *Holder) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.client = nil
}
