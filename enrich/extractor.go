// Package enrich derives a short summary, keywords, categories and sentiment
// for each collected article. Every call to the text-completion collaborator
// is independently best-effort: a failure degrades that one article's
// enrichment and never aborts ingestion.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yifanzh/newscope/llm"
	"github.com/yifanzh/newscope/utils"
	Logger "github.com/yifanzh/newscope/utils/log"
)

// Categories is the closed classification set. Anything else the model
// returns is dropped.
var Categories = []string{
	"research", "product", "business", "policy", "tutorial", "opinion", "benchmark",
}

// Enrichment is the extractor's output for a single article.
//
// LlmSummary stays nil when the completion service produced nothing usable;
// Keywords are always non-empty for a non-empty title thanks to the local
// fallback tokenizer.
type Enrichment struct {
	LlmSummary *string
	Keywords   []string
	Categories []string
	Sentiment  *float64
}

// Extractor orchestrates the three enrichment calls. A nil provider is
// valid and routes everything through the local fallbacks.
type Extractor struct {
	provider llm.Provider
}

func NewExtractor(provider llm.Provider) *Extractor {
	return &Extractor{provider: provider}
}

// Extract enriches one article. It never returns an error; partial results
// are the contract.
func (e *Extractor) Extract(ctx context.Context, title, body string) Enrichment {
	var out Enrichment

	if summary, ok := e.summarize(ctx, title, body); ok {
		out.LlmSummary = &summary
	}

	out.Keywords = e.keywords(ctx, title, body)

	categories, sentiment := e.classify(ctx, title, body)
	out.Categories = categories
	out.Sentiment = sentiment

	return out
}

const summaryPrompt = `Summarize the following article in 1-2 sentences. Respond with only the summary.

Title: %s

%s`

func (e *Extractor) summarize(ctx context.Context, title, body string) (string, bool) {
	if e.provider == nil {
		return "", false
	}
	raw, err := e.provider.Complete(ctx, fmt.Sprintf(summaryPrompt, title, truncate(body, 4000)), 150)
	if err != nil {
		Logger.Log.WithFields(logrus.Fields{"stage": "summary"}).Warn("enrichment call failed: ", err)
		return "", false
	}
	summary := stripConversationalArtifacts(raw)
	if summary == "" {
		return "", false
	}
	if looksLikeClarificationRequest(summary) {
		// The model asked for more context instead of summarizing; degrade
		// to a template built from the title alone.
		return TemplateSummary(title), true
	}
	return summary, true
}

const keywordsPrompt = `List 3 to 7 keywords describing this article. Respond with a comma-separated list only.

Title: %s

%s`

func (e *Extractor) keywords(ctx context.Context, title, body string) []string {
	if e.provider != nil {
		raw, err := e.provider.Complete(ctx, fmt.Sprintf(keywordsPrompt, title, truncate(body, 2000)), 60)
		if err == nil {
			if keywords := parseKeywordList(raw); len(keywords) > 0 {
				return keywords
			}
		} else {
			Logger.Log.WithFields(logrus.Fields{"stage": "keywords"}).Warn("enrichment call failed: ", err)
		}
	}
	return FallbackKeywords(title)
}

const classifyPrompt = `Classify this article. Respond with strict JSON only, shaped as
{"categories": [...], "sentiment": 0.0}
where categories is a subset of [%s] and sentiment is a number between -1.0 and 1.0.

Title: %s

%s`

func (e *Extractor) classify(ctx context.Context, title, body string) ([]string, *float64) {
	if e.provider == nil {
		return nil, nil
	}
	raw, err := e.provider.Complete(ctx,
		fmt.Sprintf(classifyPrompt, strings.Join(Categories, ", "), title, truncate(body, 2000)), 100)
	if err != nil {
		Logger.Log.WithFields(logrus.Fields{"stage": "classify"}).Warn("enrichment call failed: ", err)
		return nil, nil
	}

	var parsed struct {
		Categories []string `json:"categories"`
		Sentiment  float64  `json:"sentiment"`
	}
	if err := json.Unmarshal([]byte(extractJsonObject(raw)), &parsed); err != nil {
		zero := 0.0
		return nil, &zero
	}

	var categories []string
	for _, c := range parsed.Categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if utils.ContainsString(Categories, c) && !utils.ContainsString(categories, c) {
			categories = append(categories, c)
		}
	}
	sentiment := utils.Clamp(parsed.Sentiment, -1.0, 1.0)
	return categories, &sentiment
}

// stripConversationalArtifacts removes the prefixes chat models like to put
// in front of an otherwise fine summary.
func stripConversationalArtifacts(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"Summary:", "summary:", "Here is", "Here's", "here is", "here's"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			// drop the rest of the lead-in, e.g. "a short summary:"
			if idx := strings.Index(s, ":"); idx >= 0 && idx < 40 {
				s = s[idx+1:]
			}
			break
		}
	}
	return strings.TrimSpace(s)
}

var clarificationMarkers = []string{
	"i need more", "could you provide", "please provide", "i cannot",
	"i'm unable", "i am unable", "more context", "more information",
	"clarify", "what article",
}

func looksLikeClarificationRequest(s string) bool {
	lower := strings.ToLower(s)
	for _, marker := range clarificationMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func parseKeywordList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	// models occasionally answer in prose; a keyword list has no sentences
	if strings.Contains(raw, ". ") {
		return nil
	}
	var keywords []string
	for _, part := range strings.Split(raw, ",") {
		k := strings.TrimSpace(strings.Trim(strings.TrimSpace(part), `"'`))
		if k == "" || len(k) > 40 {
			continue
		}
		if !utils.ContainsString(keywords, k) {
			keywords = append(keywords, k)
		}
		if len(keywords) == 7 {
			break
		}
	}
	if len(keywords) < 3 {
		return nil
	}
	return keywords
}

// extractJsonObject pulls the outermost {...} out of a response that may be
// wrapped in markdown fences or prose.
func extractJsonObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return raw
	}
	return raw[start : end+1]
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
