package gemini

import (
	"strings"

	"pulse-cli/internal/answer"
)

// --- Request ---

type Part struct {
	Text string `json:"text,omitempty"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Tool enables a backend-side tool. Only Google Search grounding is used.
type Tool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
}

// GoogleSearchTool grounds the response on Google Search results.
func GoogleSearchTool() Tool { return Tool{GoogleSearch: &struct{}{}} }

// Schema is the subset of the OpenAPI schema accepted as responseSchema.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

type GenerationConfig struct {
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
	ResponseSchema   *Schema `json:"responseSchema,omitempty"`
}

// GenerateRequest is the body of generateContent and streamGenerateContent.
// Model travels in the URL and is not serialized.
type GenerateRequest struct {
	Model             string            `json:"-"`
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	Tools             []Tool            `json:"tools,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// Prompt builds a single-turn user request.
func Prompt(model, text string) GenerateRequest {
	return GenerateRequest{
		Model:    model,
		Contents: []Content{{Role: "user", Parts: []Part{{Text: text}}}},
	}
}

// WithSystem sets the system instruction.
func (r GenerateRequest) WithSystem(text string) GenerateRequest {
	r.SystemInstruction = &Content{Parts: []Part{{Text: text}}}
	return r
}

// WithJSON asks for a JSON response matching schema.
func (r GenerateRequest) WithJSON(schema *Schema) GenerateRequest {
	r.GenerationConfig = &GenerationConfig{ResponseMIMEType: "application/json", ResponseSchema: schema}
	return r
}

// WithSearch enables Google Search grounding.
func (r GenerateRequest) WithSearch() GenerateRequest {
	r.Tools = append(r.Tools, GoogleSearchTool())
	return r
}

// --- Response ---

type WebChunk struct {
	URI   string `json:"uri,omitempty"`
	Title string `json:"title,omitempty"`
}

type RetrievedContext struct {
	URI   string `json:"uri,omitempty"`
	Title string `json:"title,omitempty"`
	Text  string `json:"text,omitempty"`
}

type GroundingChunk struct {
	Web              *WebChunk         `json:"web,omitempty"`
	RetrievedContext *RetrievedContext `json:"retrievedContext,omitempty"`
	Snippet          string            `json:"snippet,omitempty"`
}

type GroundingMetadata struct {
	GroundingChunks  []GroundingChunk `json:"groundingChunks,omitempty"`
	WebSearchQueries []string         `json:"webSearchQueries,omitempty"`
}

type Candidate struct {
	Content           *Content           `json:"content,omitempty"`
	FinishReason      string             `json:"finishReason,omitempty"`
	GroundingMetadata *GroundingMetadata `json:"groundingMetadata,omitempty"`
}

type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount,omitempty"`
	CandidatesTokenCount int `json:"candidatesTokenCount,omitempty"`
	TotalTokenCount      int `json:"totalTokenCount,omitempty"`
}

type GenerateResponse struct {
	Candidates    []Candidate    `json:"candidates,omitempty"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
	Error         *errorBody     `json:"error,omitempty"`
}

// Text joins the text parts of the first candidate.
func (r *GenerateResponse) Text() string {
	if r == nil || len(r.Candidates) == 0 || r.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// Fragment converts one streamed response into an answer fragment. Source
// fields come from the web chunk; the snippet prefers the retrieved
// context text over the chunk's own snippet.
func (r *GenerateResponse) Fragment() answer.Fragment {
	f := answer.Fragment{TextDelta: r.Text()}
	if r == nil || len(r.Candidates) == 0 || r.Candidates[0].GroundingMetadata == nil {
		return f
	}
	for _, gc := range r.Candidates[0].GroundingMetadata.GroundingChunks {
		var chunk answer.GroundingChunk
		if gc.Web != nil {
			chunk.URI = gc.Web.URI
			chunk.Title = gc.Web.Title
		}
		if gc.RetrievedContext != nil && gc.RetrievedContext.Text != "" {
			chunk.Snippet = gc.RetrievedContext.Text
		} else {
			chunk.Snippet = gc.Snippet
		}
		f.GroundingChunks = append(f.GroundingChunks, chunk)
	}
	return f
}
