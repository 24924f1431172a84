package collector

import (
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/pkg/errors"
)

// ExtractReadableText fetches an article page and strips it down to its
// readable text, for enrichment of items whose origin carried no summary.
// Best-effort: callers treat an error as "no body available".
func ExtractReadableText(pageUrl string) (string, error) {
	article, err := readability.FromURL(pageUrl, RequestTimeout)
	if err != nil {
		return "", errors.Wrapf(err, "extract readable text from %s", pageUrl)
	}
	return strings.TrimSpace(article.TextContent), nil
}

// ExtractReadableTextFromHTML is the offline variant used by tests and by
// callers that already hold the page body.
func ExtractReadableTextFromHTML(html, pageUrl string) (string, error) {
	base, err := url.Parse(pageUrl)
	if err != nil {
		return "", errors.Wrapf(err, "parse url %s", pageUrl)
	}
	article, err := readability.FromReader(strings.NewReader(html), base)
	if err != nil {
		return "", errors.Wrap(err, "extract readable text")
	}
	return strings.TrimSpace(article.TextContent), nil
}
