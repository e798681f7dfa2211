package search

import (
	"fmt"
	"strings"
)

const systemInstruction = `CRITICAL INSTRUCTION: You are a fact-based search engine. Your ONLY permitted task is to answer the user's query from the provided Google Search results.

NON-NEGOTIABLE CITATION RULES:
1. EVERY factual statement MUST be immediately followed by a citation number in the form [number]. Example: The sky is blue [1].
2. A factual statement is anything that is not common knowledge: names, dates, statistics, events or specific claims.
3. If a sentence combines facts from different sources, cite each one. Example: The capital of Egypt is Cairo [1], and its population exceeds 9 million [2].
4. You MUST NOT present information that is not directly supported by a source from the grounding tool. If a fact has no source, leave it out.
5. An uncited fact is a critical error. Before finishing, check the whole answer and make sure every fact is cited.

RESPONSE FORMAT:
- Use Markdown.
- Respond with ONLY the cited answer, with no introduction or closing remarks.`

const citationReminder = "Remember: the most important rule is to cite every piece of information. Check the answer before sending it and make sure citations such as [1] and [2] appear in the text."

var (
	languageNames = map[string]string{"ar": "Arabic", "en": "English", "fr": "French"}

	summaryInstructions = map[SummaryLength]string{
		SummaryBrief:    "Give a brief summary.",
		SummaryNormal:   "Give a balanced answer.",
		SummaryDetailed: "Give a detailed, thorough answer.",
	}

	timeRanges = map[string]string{
		"day":   "the last 24 hours",
		"week":  "the past week",
		"month": "the past month",
	}

	tones = map[string]string{
		"professional": "professional and formal",
		"casual":       "friendly and informal",
		"academic":     "academic",
		"simple":       "simple and direct",
	}

	formats = map[string]string{
		"paragraphs": "paragraphs of text",
		"bullets":    "concise bullet points",
		"table":      "a comparison table (where it fits)",
	}

	sourceTypes = map[string]string{
		"news":       "news sites",
		"academic":   "research papers and scholarly articles",
		"government": "government sites",
	}
)

// SystemInstruction returns the instruction that enforces inline
// citations on every search answer.
func SystemInstruction() string { return systemInstruction }

// UserQuery builds the search prompt: the query followed by one
// constraint bullet per active filter and a closing citation reminder.
func UserQuery(query string, f Filters) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User query:\n%q\n\n---\n\nAdditional answer requirements (these must also be followed):\n", query)

	for _, c := range constraints(f) {
		b.WriteString("- " + c + "\n")
	}
	b.WriteString("\n" + citationReminder)
	return b.String()
}

func constraints(f Filters) []string {
	summary, ok := summaryInstructions[f.SummaryLength]
	if !ok {
		summary = summaryInstructions[SummaryNormal]
	}
	lang, ok := languageNames[f.ResultLanguage]
	if !ok {
		lang = languageNames["ar"]
	}

	out := []string{
		summary,
		"Formatting: format the answer with Markdown. Use headings (such as `## Main heading`) and bullet lists (`* item`) where needed.",
		fmt.Sprintf("Language: the final answer MUST be written in %s.", lang),
	}
	if f.MinSources > 0 {
		out = append(out, fmt.Sprintf("The answer must draw on at least %d different web sources.", f.MinSources))
	}
	if f.ExactPhrase != "" {
		out = append(out, fmt.Sprintf("The answer must contain the exact phrase %q.", f.ExactPhrase))
	}
	if f.ExcludeWord != "" {
		out = append(out, fmt.Sprintf("Avoid any information about %q.", f.ExcludeWord))
	}
	if f.Location != "" {
		out = append(out, fmt.Sprintf("Focus the search on results related to %q.", f.Location))
	}
	if r, ok := timeRanges[f.TimeRange]; ok {
		out = append(out, fmt.Sprintf("Only look for information from %s.", r))
	}
	if t, ok := tones[f.Tone]; ok {
		out = append(out, fmt.Sprintf("The tone of the answer must be %s.", t))
	}
	if fm, ok := formats[f.Format]; ok {
		out = append(out, fmt.Sprintf("Format the final answer as %s.", fm))
	}
	if s, ok := sourceTypes[f.SourceType]; ok {
		out = append(out, fmt.Sprintf("Prefer %s as sources.", s))
	}
	if site := strings.TrimSpace(f.SiteSearch); site != "" {
		out = append(out, fmt.Sprintf("All results must come only from this site: %s.", site))
	}
	return out
}

func analyzePrompt(text string) string {
	return "Analyze the following text to extract comprehensive insights. Text to analyze: --- " + text + " --- Provide the analysis in a structured JSON format."
}

func relatedPrompt(query string) string {
	return fmt.Sprintf("Based on the search query %q, generate 3 related questions that a user might ask next, in the language of the query. Provide only the questions in a JSON array of strings.", query)
}

func factCheckPrompt(text string) string {
	return `You are a fact-checking expert. Analyze the following text and identify the main factual claims.
For each claim, determine whether it is well-supported, supported by only a single source (making it less reliable), or subject to conflicting reports.
Give a brief explanation of your reasoning when a claim is not well-supported.
Finally, give an overall confidence rating for the entire text.

Text to analyze:
---
` + text + `
---

Respond ONLY with a JSON object of this shape:
{"overallConfidence": "High" | "Medium" | "Conflicting",
 "claims": [{"claim": string, "status": "Well-supported" | "Single source" | "Conflicting", "explanation": string}]}`
}

func summarizePrompt(text string, detail SummaryDetail) string {
	return fmt.Sprintf(`Please summarize the following text. The summary should be %s.
Write the summary in the language of the text.

Text to summarize:
---
%s
---
`, detail, text)
}
