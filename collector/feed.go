package collector

import (
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/yifanzh/newscope/model"
	Logger "github.com/yifanzh/newscope/utils/log"
)

// FeedFetcher handles the RSS/Atom/JSON-feed family through a single parser.
type FeedFetcher struct {
	parser *gofeed.Parser
}

func NewFeedFetcher() *FeedFetcher {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: RequestTimeout}
	return &FeedFetcher{parser: parser}
}

func (f *FeedFetcher) Fetch(source model.Source) ([]NormalizedItem, error) {
	feedUrl := source.FeedUrl
	if feedUrl == "" {
		feedUrl = source.Url
	}

	feed, err := f.parser.ParseURL(feedUrl)
	if err != nil {
		return nil, errors.Wrapf(err, "parse feed %s", feedUrl)
	}

	items := make([]NormalizedItem, 0, MaxFeedItems)
	for _, entry := range feed.Items {
		if len(items) == MaxFeedItems {
			break
		}
		title := strings.TrimSpace(entry.Title)
		link := strings.TrimSpace(entry.Link)
		if title == "" || link == "" {
			// a broken item, not a broken feed
			Logger.Log.WithFields(logrus.Fields{"source": source.Name}).
				Debug("skipping feed item without title or link")
			continue
		}

		item := NormalizedItem{
			Title:       title,
			Url:         link,
			SummaryText: strings.TrimSpace(entry.Description),
			PublishedAt: entryPublishedAt(entry),
		}
		if item.SummaryText == "" && entry.Content != "" {
			item.SummaryText = strings.TrimSpace(entry.Content)
		}
		if entry.Author != nil {
			item.Author = entry.Author.Name
		}
		if entry.Image != nil {
			item.ImageUrl = entry.Image.URL
		}
		items = append(items, item)
	}
	return items, nil
}

// entryPublishedAt picks the best available timestamp for a feed entry.
// Feeds disagree wildly on date formats, so the raw string goes through
// dateparse when gofeed could not make sense of it.
func entryPublishedAt(entry *gofeed.Item) *time.Time {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed
	}
	if entry.UpdatedParsed != nil {
		return entry.UpdatedParsed
	}
	for _, raw := range []string{entry.Published, entry.Updated} {
		if raw == "" {
			continue
		}
		if t, err := dateparse.ParseAny(raw); err == nil {
			return &t
		}
	}
	return nil
}
