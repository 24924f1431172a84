package collector

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/yifanzh/newscope/model"
	Logger "github.com/yifanzh/newscope/utils/log"
)

const benchmarkTopN = 5

// Benchmark is one tracked leaderboard in the fixed catalog.
type Benchmark struct {
	Name string
	Url  string
	// "table" for an HTML leaderboard, "json" for an API endpoint
	Format string
}

// DefaultBenchmarks is the catalog tracked out of the box.
var DefaultBenchmarks = []Benchmark{
	{Name: "MMLU", Url: "https://paperswithcode.com/sota/multi-task-language-understanding-on-mmlu", Format: "table"},
	{Name: "Chatbot Arena", Url: "https://lmarena.ai/leaderboard", Format: "table"},
	{Name: "SWE-bench", Url: "https://www.swebench.com/api/leaderboard", Format: "json"},
	{Name: "HumanEval", Url: "https://paperswithcode.com/sota/code-generation-on-humaneval", Format: "table"},
}

type leaderboardRow struct {
	Model string
	Score string
}

// BenchmarkFetcher walks the benchmark catalog and turns each leaderboard's
// top rows into items, plus a notable-event article for the rank-1 row. A
// single benchmark failing to parse is logged and skipped.
type BenchmarkFetcher struct {
	client  HttpClient
	catalog []Benchmark
}

func NewBenchmarkFetcher() *BenchmarkFetcher {
	return &BenchmarkFetcher{catalog: DefaultBenchmarks}
}

func (b *BenchmarkFetcher) Fetch(source model.Source) ([]NormalizedItem, error) {
	var items []NormalizedItem
	for _, bench := range b.catalog {
		rows, err := b.fetchRows(bench)
		if err != nil {
			Logger.Log.WithFields(logrus.Fields{"source": source.Name, "benchmark": bench.Name}).
				Error("benchmark fetch failed: ", err)
			continue
		}
		if len(rows) == 0 {
			continue
		}
		for i, row := range rows {
			items = append(items, standingItem(bench, i+1, row))
		}
		items = append(items, notableEventItem(bench, rows))
	}
	return items, nil
}

func (b *BenchmarkFetcher) fetchRows(bench Benchmark) ([]leaderboardRow, error) {
	body, err := b.client.FetchText(bench.Url)
	if err != nil {
		return nil, err
	}
	if bench.Format == "json" {
		return parseJsonLeaderboard(body)
	}
	return parseTableLeaderboard(body)
}

// standingItem is one leaderboard row as an article. Rows carry no canonical
// URL of their own, so the entrant name anchors one: an entrant stays a
// single article for as long as it is on the board.
func standingItem(bench Benchmark, rank int, row leaderboardRow) NormalizedItem {
	now := time.Now()
	return NormalizedItem{
		Title: fmt.Sprintf("%s ranks #%d on %s", row.Model, rank, bench.Name),
		Url:   bench.Url + "#entry-" + slugify(row.Model),
		SummaryText: fmt.Sprintf("%s holds rank %d on the %s leaderboard with a score of %s.",
			row.Model, rank, bench.Name, row.Score),
		PublishedAt: &now,
	}
}

// notableEventItem announces the current leader. The URL carries the leader
// name, so the same reign dedups across cycles and a leadership change
// produces a fresh article.
func notableEventItem(bench Benchmark, rows []leaderboardRow) NormalizedItem {
	leader := rows[0]
	now := time.Now()

	var standings []string
	for i, row := range rows {
		standings = append(standings, fmt.Sprintf("%d. %s (%s)", i+1, row.Model, row.Score))
	}

	return NormalizedItem{
		Title: fmt.Sprintf("%s now leads the %s leaderboard", leader.Model, bench.Name),
		Url:   bench.Url + "#leader-" + slugify(leader.Model),
		SummaryText: fmt.Sprintf("%s tops %s with a score of %s. Current standings: %s.",
			leader.Model, bench.Name, leader.Score, strings.Join(standings, "; ")),
		PublishedAt: &now,
	}
}

// parseTableLeaderboard reads the first plausible HTML table on the page,
// taking the first text cell as the model name and the next non-empty cell
// as the score.
func parseTableLeaderboard(body string) ([]leaderboardRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "parse leaderboard html")
	}

	var rows []leaderboardRow
	doc.Find("table tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			// header or spacer row
			return true
		}
		var texts []string
		cells.Each(func(_ int, td *goquery.Selection) {
			texts = append(texts, strings.TrimSpace(td.Text()))
		})
		row := rowFromCells(texts)
		if row.Model != "" {
			rows = append(rows, row)
		}
		return len(rows) < benchmarkTopN
	})
	if len(rows) == 0 {
		return nil, errors.New("no leaderboard rows found in table")
	}
	return rows, nil
}

// rowFromCells skips a leading rank cell if present.
func rowFromCells(texts []string) leaderboardRow {
	start := 0
	if len(texts) > 2 && isNumeric(texts[0]) {
		start = 1
	}
	row := leaderboardRow{Model: texts[start]}
	for _, t := range texts[start+1:] {
		if t != "" {
			row.Score = t
			break
		}
	}
	return row
}

// parseJsonLeaderboard accepts either a bare array of entries or an object
// wrapping one under "leaderboard", "results" or "entries".
func parseJsonLeaderboard(body string) ([]leaderboardRow, error) {
	var entries []map[string]interface{}
	if err := json.Unmarshal([]byte(body), &entries); err != nil {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal([]byte(body), &wrapper); err != nil {
			return nil, errors.Wrap(err, "parse leaderboard json")
		}
		for _, key := range []string{"leaderboard", "results", "entries"} {
			if raw, ok := wrapper[key]; ok {
				if err := json.Unmarshal(raw, &entries); err == nil {
					break
				}
			}
		}
	}

	var rows []leaderboardRow
	for _, entry := range entries {
		row := leaderboardRow{
			Model: stringField(entry, "model", "name", "system"),
			Score: stringField(entry, "score", "accuracy", "resolved"),
		}
		if row.Model == "" {
			continue
		}
		rows = append(rows, row)
		if len(rows) == benchmarkTopN {
			break
		}
	}
	if len(rows) == 0 {
		return nil, errors.New("no leaderboard rows found in json")
	}
	return rows, nil
}

func stringField(entry map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		switch v := entry[key].(type) {
		case string:
			return v
		case float64:
			return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
		}
	}
	return ""
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}

func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
