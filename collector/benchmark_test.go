package collector

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yifanzh/newscope/model"
)

const leaderboardTable = `<html><body><table>
<tr><th>Rank</th><th>Model</th><th>Score</th></tr>
<tr><td>1</td><td>Frontier-9</td><td>92.1</td></tr>
<tr><td>2</td><td>OpenModel-7B</td><td>88.4</td></tr>
<tr><td>3</td><td>Baseline</td><td>71.0</td></tr>
</table></body></html>`

const leaderboardJson = `{"leaderboard": [
  {"model": "AgentX", "score": 62.5},
  {"model": "AgentY", "score": 58.0}
]}`

func TestParseTableLeaderboard(t *testing.T) {
	rows, err := parseTableLeaderboard(leaderboardTable)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Frontier-9", rows[0].Model)
	assert.Equal(t, "92.1", rows[0].Score)
	assert.Equal(t, "Baseline", rows[2].Model)
}

func TestParseTableLeaderboardEmpty(t *testing.T) {
	_, err := parseTableLeaderboard("<html><body><p>no table</p></body></html>")
	assert.Error(t, err)
}

func TestParseJsonLeaderboard(t *testing.T) {
	rows, err := parseJsonLeaderboard(leaderboardJson)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "AgentX", rows[0].Model)
	assert.Equal(t, "62.5", rows[0].Score)

	bare, err := parseJsonLeaderboard(`[{"name": "Solo", "accuracy": "0.91"}]`)
	require.NoError(t, err)
	require.Len(t, bare, 1)
	assert.Equal(t, "Solo", bare[0].Model)
	assert.Equal(t, "0.91", bare[0].Score)
}

func TestBenchmarkFetcherNotableEvent(t *testing.T) {
	table := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(leaderboardTable))
	}))
	defer table.Close()
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(leaderboardJson))
	}))
	defer api.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer broken.Close()

	fetcher := &BenchmarkFetcher{catalog: []Benchmark{
		{Name: "MMLU", Url: table.URL, Format: "table"},
		{Name: "SWE-bench", Url: api.URL, Format: "json"},
		{Name: "Broken", Url: broken.URL, Format: "table"},
	}}

	items, err := fetcher.Fetch(model.Source{
		Name: "Benchmarks", Type: model.SourceTypeBenchmarkTracker,
	})
	require.NoError(t, err)

	// each parseable leaderboard yields its rows plus a notable-event
	// article, broken skipped: (3+1) + (2+1)
	require.Len(t, items, 7)

	assert.Equal(t, "Frontier-9 ranks #1 on MMLU", items[0].Title)
	assert.Equal(t, table.URL+"#entry-frontier-9", items[0].Url)
	assert.Contains(t, items[0].SummaryText, "score of 92.1")
	require.NotNil(t, items[0].PublishedAt)
	assert.Equal(t, "OpenModel-7B ranks #2 on MMLU", items[1].Title)

	notable := items[3]
	assert.Equal(t, "Frontier-9 now leads the MMLU leaderboard", notable.Title)
	assert.Equal(t, table.URL+"#leader-frontier-9", notable.Url)
	assert.Contains(t, notable.SummaryText, "2. OpenModel-7B (88.4)")

	assert.Equal(t, "AgentX ranks #1 on SWE-bench", items[4].Title)
	assert.Equal(t, "AgentX now leads the SWE-bench leaderboard", items[6].Title)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "gpt-4o-mini", slugify("GPT-4o Mini"))
	assert.Equal(t, "frontier-9", slugify("Frontier-9"))
}
