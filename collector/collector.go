// Package collector pulls raw items from external endpoints, one fetcher
// behavior per source type. Fetchers are independent and share no mutable
// state; each one normalizes into its own result list and hands off
// downstream. A fetcher failure is source-local: the source contributes zero
// items for the cycle and the refresh moves on.
package collector

import (
	"time"

	"github.com/yifanzh/newscope/model"
)

const (
	// MaxFeedItems caps items taken from one syndication feed per cycle.
	MaxFeedItems = 20
	// MaxScrapeItems caps items taken from one scraped page per cycle.
	MaxScrapeItems = 10
	// MaxPersonItems caps items taken from one tracked person's page.
	MaxPersonItems = 5

	// RequestTimeout bounds any single outbound request.
	RequestTimeout = 20 * time.Second
)

// NormalizedItem is the fetcher output: the common shape every source type
// is reduced to before enrichment and persistence.
type NormalizedItem struct {
	Title       string
	Url         string
	SummaryText string
	PublishedAt *time.Time
	Author      string
	ImageUrl    string
}

// Fetcher produces a bounded list of normalized items for one source, or an
// error. Errors are reported by the caller, never fatal to the refresh.
type Fetcher interface {
	Fetch(source model.Source) ([]NormalizedItem, error)
}
