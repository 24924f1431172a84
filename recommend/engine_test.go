package recommend

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yifanzh/newscope/model"
)

// fakeStore is an in-memory Store for engine tests.
type fakeStore struct {
	prefs         map[string]model.UserPreference
	stats         map[string]*model.KeywordStat
	rankingDeltas map[string][]float64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		prefs:         map[string]model.UserPreference{},
		stats:         map[string]*model.KeywordStat{},
		rankingDeltas: map[string][]float64{},
	}
}

func (f *fakeStore) GetUserPreferences() ([]model.UserPreference, error) {
	var out []model.UserPreference
	for _, p := range f.prefs {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) UpsertUserPreference(pref model.UserPreference) error {
	f.prefs[pref.Keyword] = pref
	return nil
}

func (f *fakeStore) UpsertKeywordStat(keyword string, positive bool) error {
	stat, ok := f.stats[keyword]
	if !ok {
		stat = &model.KeywordStat{Keyword: keyword}
		f.stats[keyword] = stat
	}
	stat.UsageCount++
	if positive {
		stat.PositiveCount++
	} else {
		stat.NegativeCount++
	}
	return nil
}

func (f *fakeStore) AdjustSourceRanking(id string, delta float64) error {
	f.rankingDeltas[id] = append(f.rankingDeltas[id], delta)
	return nil
}

func TestScoreBoundsProperty(t *testing.T) {
	e := NewEngineWithSeed(newFakeStore(), 1)
	rng := rand.New(rand.NewSource(2))

	for i := 0; i < 2000; i++ {
		prefs := map[string]model.UserPreference{}
		var keywords []string
		for k := 0; k < rng.Intn(12); k++ {
			keyword := string(rune('a' + rng.Intn(26)))
			keywords = append(keywords, keyword)
			if rng.Float64() < 0.5 {
				prefs[keyword] = model.UserPreference{
					Keyword:    keyword,
					Weight:     rng.Float64()*2 - 1,
					Confidence: rng.Float64(),
				}
			}
		}
		e.SetExplorationRate(rng.Float64() * MaxExplorationRate)

		score := e.Score(model.Article{Keywords: keywords}, prefs)
		require.GreaterOrEqual(t, score, 0.0)
		require.LessOrEqual(t, score, 1.0)
	}
}

func TestScoreKnownPreferenceScenario(t *testing.T) {
	// prefs {"llm": weight 0.8, confidence 0.9}, keywords [llm robotics],
	// exploration off: expectation is 0.5 + 0.8*0.15 + E[novel] = 0.62
	e := NewEngineWithSeed(newFakeStore(), 42)
	e.SetExplorationRate(0)
	prefs := map[string]model.UserPreference{
		"llm": {Keyword: "llm", Weight: 0.8, Confidence: 0.9},
	}
	article := model.Article{Keywords: []string{"llm", "robotics"}}

	var sum float64
	const n = 500
	for i := 0; i < n; i++ {
		score := e.Score(article, prefs)
		// single draws stay near the expectation
		assert.InDelta(t, 0.62, score, 0.2)
		sum += score
	}
	assert.InDelta(t, 0.62, sum/n, 0.01)
}

func TestScoreNovelKeywordCentersOnBase(t *testing.T) {
	e := NewEngineWithSeed(newFakeStore(), 7)
	e.SetExplorationRate(0)

	var sum float64
	const n = 500
	for i := 0; i < n; i++ {
		sum += e.Score(model.Article{Keywords: []string{"unheard-of"}}, nil)
	}
	assert.InDelta(t, 0.5, sum/n, 0.01)
}

func TestRankJitterPreventsStableOrder(t *testing.T) {
	s := newFakeStore()
	e := NewEngineWithSeed(s, 11)
	e.SetExplorationRate(0)

	// identical articles, so only jitter decides the order
	articles := []model.Article{
		{Id: "a"}, {Id: "b"}, {Id: "c"}, {Id: "d"}, {Id: "e"},
	}

	positions := map[string]map[int]bool{}
	for run := 0; run < 200; run++ {
		ranked, err := e.Rank(articles)
		require.NoError(t, err)
		require.Len(t, ranked, len(articles))
		for pos, a := range ranked {
			if positions[a.Id] == nil {
				positions[a.Id] = map[int]bool{}
			}
			positions[a.Id][pos] = true
		}
	}

	// over many runs the fixed article "c" must move around
	assert.Greater(t, len(positions["c"]), 1,
		"ranking order is documented as non-deterministic, but position never varied")
}

func TestRankOrdersByScore(t *testing.T) {
	s := newFakeStore()
	s.prefs["loved"] = model.UserPreference{Keyword: "loved", Weight: 1.0, Confidence: 1.0}
	s.prefs["hated"] = model.UserPreference{Keyword: "hated", Weight: -1.0, Confidence: 1.0}
	e := NewEngineWithSeed(s, 3)
	e.SetExplorationRate(0)

	articles := []model.Article{
		{Id: "down", Keywords: []string{"hated", "hated", "hated"}},
		{Id: "up", Keywords: []string{"loved", "loved", "loved"}},
	}

	// jitter (±0.05) cannot bridge the 0.9 score gap
	for run := 0; run < 50; run++ {
		ranked, err := e.Rank(articles)
		require.NoError(t, err)
		assert.Equal(t, "up", ranked[0].Id)
		assert.InDelta(t, 0.95, ranked[0].Relevance, 1e-9)
		assert.InDelta(t, 0.05, ranked[1].Relevance, 1e-9)
	}
}

func TestFeedbackDirection(t *testing.T) {
	s := newFakeStore()
	e := NewEngineWithSeed(s, 5)
	article := model.Article{
		SourceId: "src-1",
		Keywords: []string{"llm", "robotics"},
	}

	require.NoError(t, e.Feedback(article, true))

	for _, keyword := range article.Keywords {
		stat := s.stats[keyword]
		require.NotNil(t, stat)
		assert.Equal(t, 1, stat.UsageCount)
		assert.Equal(t, 1, stat.PositiveCount)
		assert.Equal(t, 0, stat.NegativeCount)

		pref := s.prefs[keyword]
		assert.Greater(t, pref.Weight, 0.0)
		assert.Greater(t, pref.Confidence, 0.0)
	}
	require.Len(t, s.rankingDeltas["src-1"], 1)
	assert.Equal(t, 0.02, s.rankingDeltas["src-1"][0])

	// repeated positive feedback never decreases the weight
	prev := s.prefs["llm"].Weight
	for i := 0; i < 30; i++ {
		require.NoError(t, e.Feedback(article, true))
		cur := s.prefs["llm"].Weight
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
	assert.LessOrEqual(t, prev, 1.0)
}

func TestFeedbackNegative(t *testing.T) {
	s := newFakeStore()
	e := NewEngineWithSeed(s, 5)
	article := model.Article{SourceId: "src-1", Keywords: []string{"crypto"}}

	require.NoError(t, e.Feedback(article, false))

	stat := s.stats["crypto"]
	assert.Equal(t, 1, stat.UsageCount)
	assert.Equal(t, 1, stat.NegativeCount)
	assert.Less(t, s.prefs["crypto"].Weight, 0.0)
	assert.Equal(t, -0.01, s.rankingDeltas["src-1"][0])
}

func TestFeedbackConfidenceMonotone(t *testing.T) {
	s := newFakeStore()
	e := NewEngineWithSeed(s, 5)
	article := model.Article{SourceId: "src-1", Keywords: []string{"llm"}}

	prev := 0.0
	for i := 0; i < 50; i++ {
		positive := i%2 == 0
		require.NoError(t, e.Feedback(article, positive))
		cur := s.prefs["llm"].Confidence
		assert.Greater(t, cur, prev)
		assert.LessOrEqual(t, cur, 1.0)
		prev = cur
	}
	assert.Greater(t, prev, 0.9)
}

func TestDiversity(t *testing.T) {
	t.Run("empty set is zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Diversity(nil))
	})

	t.Run("bounds", func(t *testing.T) {
		categories := []string{"research", "product", "business", "policy", "tutorial", "opinion", "benchmark"}
		rng := rand.New(rand.NewSource(9))
		for i := 0; i < 200; i++ {
			var articles []model.Article
			for j := 0; j < 1+rng.Intn(30); j++ {
				articles = append(articles, model.Article{
					SourceId:   string(rune('a' + rng.Intn(15))),
					Keywords:   []string{string(rune('a' + rng.Intn(26)))},
					Categories: []string{categories[rng.Intn(len(categories))]},
				})
			}
			d := Diversity(articles)
			require.GreaterOrEqual(t, d, 0.0)
			require.LessOrEqual(t, d, 1.0)
		}
	})

	t.Run("homogeneous set scores narrow", func(t *testing.T) {
		articles := []model.Article{
			{SourceId: "s", Keywords: []string{"llm"}, Categories: []string{"research"}},
			{SourceId: "s", Keywords: []string{"llm"}, Categories: []string{"research"}},
		}
		d := Diversity(articles)
		assert.Less(t, d, 0.4)
		assert.Equal(t, "narrow", DiversityStatus(d))
	})
}

func TestDiversityStatusLevels(t *testing.T) {
	assert.Equal(t, "healthy", DiversityStatus(0.71))
	assert.Equal(t, "moderate", DiversityStatus(0.5))
	assert.Equal(t, "narrow", DiversityStatus(0.4))
	assert.Equal(t, "narrow", DiversityStatus(0.1))
}

func TestAdaptExplorationRate(t *testing.T) {
	e := NewEngineWithSeed(newFakeStore(), 1)

	assert.Equal(t, DefaultExplorationRate, e.ExplorationRate())

	for i := 0; i < 20; i++ {
		e.AdaptExplorationRate(0.5)
	}
	assert.Equal(t, MaxExplorationRate, e.ExplorationRate())

	for i := 0; i < 30; i++ {
		e.AdaptExplorationRate(0.05)
	}
	assert.Equal(t, MinExplorationRate, e.ExplorationRate())

	before := e.ExplorationRate()
	e.AdaptExplorationRate(0.2)
	assert.Equal(t, before, e.ExplorationRate())
}

func TestEngagementRate(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 0.0, EngagementRate(nil))
	articles := []model.Article{
		{Rated: true},
		{ReadAt: &now},
		{Bookmarked: true},
		{},
	}
	assert.Equal(t, 0.75, EngagementRate(articles))
}
