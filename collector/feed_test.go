package collector

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yifanzh/newscope/model"
)

const rssDoc = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Example</title><link>https://example.com</link>
<item>
  <title>First story</title>
  <link>https://example.com/1</link>
  <description>Something happened.</description>
  <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
  <author>jane@example.com (Jane Doe)</author>
</item>
<item>
  <title></title>
  <link>https://example.com/untitled</link>
</item>
<item>
  <title>No link here</title>
</item>
<item>
  <title>Second story</title>
  <link>https://example.com/2</link>
</item>
</channel></rss>`

func serveFeed(t *testing.T, doc string) model.Source {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(doc))
	}))
	t.Cleanup(server.Close)
	return model.Source{
		Name:    "Example",
		Type:    model.SourceTypeFeed,
		Url:     server.URL,
		FeedUrl: server.URL + "/rss",
	}
}

func TestFeedFetcherNormalizes(t *testing.T) {
	source := serveFeed(t, rssDoc)
	items, err := NewFeedFetcher().Fetch(source)
	require.NoError(t, err)

	// items without title or link are skipped, not fatal
	require.Len(t, items, 2)
	assert.Equal(t, "First story", items[0].Title)
	assert.Equal(t, "https://example.com/1", items[0].Url)
	assert.Equal(t, "Something happened.", items[0].SummaryText)
	require.NotNil(t, items[0].PublishedAt)
	assert.Equal(t, 2006, items[0].PublishedAt.Year())
	assert.Equal(t, "Second story", items[1].Title)
	assert.Nil(t, items[1].PublishedAt)
}

func TestFeedFetcherCapsItemCount(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>Big</title>`)
	for i := 0; i < MaxFeedItems+10; i++ {
		fmt.Fprintf(&b, `<item><title>story %d</title><link>https://example.com/%d</link></item>`, i, i)
	}
	b.WriteString(`</channel></rss>`)

	source := serveFeed(t, b.String())
	items, err := NewFeedFetcher().Fetch(source)
	require.NoError(t, err)
	assert.Len(t, items, MaxFeedItems)
}

func TestFeedFetcherUnreachable(t *testing.T) {
	_, err := NewFeedFetcher().Fetch(model.Source{
		Name: "gone", Type: model.SourceTypeFeed,
		FeedUrl: "http://127.0.0.1:1/rss",
	})
	assert.Error(t, err)
}
