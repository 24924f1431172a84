package enrich

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/yifanzh/newscope/utils"
)

// stop words dropped by the fallback tokenizer
var stopWords = []string{
	"the", "and", "for", "with", "from", "that", "this", "are", "was", "all",
	"has", "have", "will", "its", "into", "about", "after", "over",
	"new", "how", "why", "what", "when", "can", "you", "your", "not",
}

// FallbackKeywords derives keywords from the title alone: lowercase, strip
// punctuation, drop short tokens and stop words, keep the first 5, title-case
// them. Deterministic, used whenever the completion service yields nothing.
func FallbackKeywords(title string) []string {
	var keywords []string
	for _, token := range strings.Fields(strings.ToLower(title)) {
		token = strings.TrimFunc(token, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if len(token) <= 2 || utils.ContainsString(stopWords, token) {
			continue
		}
		keywords = append(keywords, strings.Title(token))
		if len(keywords) == 5 {
			break
		}
	}
	return keywords
}

// TemplateSummary is the summary of last resort, built from the title alone.
func TemplateSummary(title string) string {
	return fmt.Sprintf("An article covering %s.", strings.TrimSpace(title))
}
