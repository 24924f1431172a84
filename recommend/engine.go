// Package recommend is the scoring and learning core: it estimates per-article
// relevance from learned keyword preferences, updates those preferences and
// source quality from binary feedback, and measures feed-level diversity.
//
// Scoring is a practical Thompson-Sampling analogue. The stored
// (weight, confidence) pair of each preference stands in for a posterior
// summary; at score time a weight is sampled from a Gaussian around the
// stored value, so low-confidence preferences contribute a noisier, more
// exploratory signal than settled ones.
package recommend

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/yifanzh/newscope/model"
	"github.com/yifanzh/newscope/utils"
)

const (
	baseScore = 0.5

	// contribution scale of a known preference's sampled weight
	knownKeywordScale = 0.15
	// spread and scale of the novel-keyword exploration draw
	novelKeywordStdDev = 0.3
	novelKeywordScale  = 0.1
	// a fully confident preference still gets stdDev 0; confidence 0 gets 0.2
	confidenceStdDevScale = 0.2

	// exploration-rate bounds and defaults
	DefaultExplorationRate = 0.15
	MinExplorationRate     = 0.05
	MaxExplorationRate     = 0.25
	explorationStep        = 0.02

	// flat exploration bonus range
	explorationBonusMin = 0.1
	explorationBonusMax = 0.3

	// ranking jitter half-width
	rankJitter = 0.05

	// feedback deltas
	sourceRankingRewardDelta  = 0.02
	sourceRankingPenaltyDelta = -0.01
	preferenceDelta           = 0.1
	preferenceDecay           = 0.95
	confidenceGain            = 0.1

	// diversity normalization caps
	diversityKeywordCap  = 50
	diversityCategoryCap = 7
	diversitySourceCap   = 10
)

// Store is the persisted-state surface the engine consumes and mutates.
// *store.Store satisfies it.
type Store interface {
	GetUserPreferences() ([]model.UserPreference, error)
	UpsertUserPreference(pref model.UserPreference) error
	UpsertKeywordStat(keyword string, positive bool) error
	AdjustSourceRanking(id string, delta float64) error
}

// Engine scores, ranks and learns. Safe for concurrent use; all randomness
// and the exploration rate sit behind one mutex.
type Engine struct {
	store Store

	mu              sync.Mutex
	rng             *rand.Rand
	explorationRate float64
}

func NewEngine(s Store) *Engine {
	return NewEngineWithSeed(s, rand.Int63())
}

// NewEngineWithSeed pins the random source, for tests that need a
// reproducible sampling sequence.
func NewEngineWithSeed(s Store, seed int64) *Engine {
	return &Engine{
		store:           s,
		rng:             rand.New(rand.NewSource(seed)),
		explorationRate: DefaultExplorationRate,
	}
}

// ExplorationRate returns the current exploration probability.
func (e *Engine) ExplorationRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.explorationRate
}

// SetExplorationRate overrides the exploration probability, clamped to the
// allowed band.
func (e *Engine) SetExplorationRate(rate float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.explorationRate = utils.Clamp(rate, 0.0, MaxExplorationRate)
}

// AdaptExplorationRate nudges the exploration probability from an external
// engagement signal: high engagement means the user tolerates novelty, low
// engagement means the feed should exploit known preferences more.
func (e *Engine) AdaptExplorationRate(engagement float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case engagement > 0.3:
		e.explorationRate = math.Min(e.explorationRate+explorationStep, MaxExplorationRate)
	case engagement < 0.1:
		e.explorationRate = math.Max(e.explorationRate-explorationStep, MinExplorationRate)
	}
}

// Score estimates relevance for one article in [0,1] given the current
// preference set, keyed by keyword.
func (e *Engine) Score(article model.Article, prefs map[string]model.UserPreference) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scoreLocked(article, prefs)
}

func (e *Engine) scoreLocked(article model.Article, prefs map[string]model.UserPreference) float64 {
	score := baseScore
	for _, keyword := range article.Keywords {
		if pref, ok := prefs[keyword]; ok {
			stdDev := (1 - pref.Confidence) * confidenceStdDevScale
			score += e.sampleGaussian(pref.Weight, stdDev) * knownKeywordScale
		} else {
			// novel keyword: the primary mechanism for surfacing
			// unfamiliar content
			score += e.sampleGaussian(0, novelKeywordStdDev) * novelKeywordScale
		}
	}
	if e.rng.Float64() < e.explorationRate {
		score += explorationBonusMin + e.rng.Float64()*(explorationBonusMax-explorationBonusMin)
	}
	return utils.Clamp(score, 0.0, 1.0)
}

// sampleGaussian draws from N(mean, stdDev²) with the standard Box-Muller
// transform: z = sqrt(-2 ln u1) * cos(2π u2), u1 in (0,1], u2 in [0,1).
func (e *Engine) sampleGaussian(mean, stdDev float64) float64 {
	if stdDev <= 0 {
		return mean
	}
	u1 := 1 - e.rng.Float64()
	u2 := e.rng.Float64()
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	return mean + z*stdDev
}

// Rank scores every article and returns a copy sorted best-first.
//
// The ordering contract is deliberately non-deterministic: a small symmetric
// jitter (uniform in ±0.05) enters each article's sort key, so repeated
// calls on an unchanged article set are NOT guaranteed to return the same
// order. The article's Relevance field carries the un-jittered score.
func (e *Engine) Rank(articles []model.Article) ([]model.Article, error) {
	prefList, err := e.store.GetUserPreferences()
	if err != nil {
		return nil, errors.Wrap(err, "load preferences")
	}
	prefs := make(map[string]model.UserPreference, len(prefList))
	for _, p := range prefList {
		prefs[p.Keyword] = p
	}

	ranked := make([]model.Article, len(articles))
	copy(ranked, articles)
	keys := make([]float64, len(ranked))

	e.mu.Lock()
	for i := range ranked {
		score := e.scoreLocked(ranked[i], prefs)
		ranked[i].Relevance = score
		keys[i] = score + (e.rng.Float64()*2-1)*rankJitter
	}
	e.mu.Unlock()

	sort.Stable(sort.Reverse(byKey{articles: ranked, keys: keys}))
	return ranked, nil
}

// byKey sorts articles and their jittered sort keys together.
type byKey struct {
	articles []model.Article
	keys     []float64
}

func (b byKey) Len() int           { return len(b.articles) }
func (b byKey) Less(i, j int) bool { return b.keys[i] < b.keys[j] }
func (b byKey) Swap(i, j int) {
	b.articles[i], b.articles[j] = b.articles[j], b.articles[i]
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
}

// Feedback folds one thumbs up/down into persisted state: keyword tallies,
// source quality and per-keyword preferences.
//
// The source ranking adjustment is asymmetric on purpose: negative signal
// decays source trust more slowly than positive signal builds it.
func (e *Engine) Feedback(article model.Article, positive bool) error {
	for _, keyword := range article.Keywords {
		if err := e.store.UpsertKeywordStat(keyword, positive); err != nil {
			return errors.Wrapf(err, "update stat for keyword %q", keyword)
		}
	}

	delta := sourceRankingRewardDelta
	if !positive {
		delta = sourceRankingPenaltyDelta
	}
	if err := e.store.AdjustSourceRanking(article.SourceId, delta); err != nil {
		return errors.Wrap(err, "adjust source ranking")
	}

	return e.updatePreferences(article.Keywords, positive)
}

// updatePreferences moves each keyword's weight by ±0.1 on a decayed moving
// average, so old observations are discounted relative to new ones, and
// grows confidence monotonically toward 1.
func (e *Engine) updatePreferences(keywords []string, positive bool) error {
	prefList, err := e.store.GetUserPreferences()
	if err != nil {
		return errors.Wrap(err, "load preferences")
	}
	prefs := make(map[string]model.UserPreference, len(prefList))
	for _, p := range prefList {
		prefs[p.Keyword] = p
	}

	delta := preferenceDelta
	if !positive {
		delta = -preferenceDelta
	}

	for _, keyword := range keywords {
		pref, ok := prefs[keyword]
		if !ok {
			pref = model.UserPreference{Keyword: keyword}
		}
		pref.Weight = utils.Clamp(pref.Weight*preferenceDecay+delta, -1.0, 1.0)
		pref.Confidence = utils.Clamp(pref.Confidence+(1-pref.Confidence)*confidenceGain, 0.0, 1.0)
		if err := e.store.UpsertUserPreference(pref); err != nil {
			return errors.Wrapf(err, "upsert preference for keyword %q", keyword)
		}
	}
	return nil
}

// Diversity measures how heterogeneous a working set is, in [0,1]: the mean
// of unique-keyword, unique-category and unique-source ratios, each clamped
// to 1. An empty set is 0 by convention.
func Diversity(articles []model.Article) float64 {
	if len(articles) == 0 {
		return 0
	}

	keywords := map[string]bool{}
	categories := map[string]bool{}
	sources := map[string]bool{}
	for _, a := range articles {
		for _, k := range a.Keywords {
			keywords[k] = true
		}
		for _, c := range a.Categories {
			categories[c] = true
		}
		sources[a.SourceId] = true
	}

	components := []float64{
		math.Min(float64(len(keywords))/diversityKeywordCap, 1.0),
		math.Min(float64(len(categories))/diversityCategoryCap, 1.0),
		math.Min(float64(len(sources))/diversitySourceCap, 1.0),
	}
	return stat.Mean(components, nil)
}

// DiversityStatus maps a diversity score to its advisory label. It is output
// only; nothing feeds it back into scoring.
func DiversityStatus(diversity float64) string {
	switch {
	case diversity > 0.7:
		return "healthy"
	case diversity > 0.4:
		return "moderate"
	default:
		return "narrow"
	}
}

// EngagementRate derives the engagement signal from a window of articles:
// the share that was rated, read or bookmarked.
func EngagementRate(articles []model.Article) float64 {
	if len(articles) == 0 {
		return 0
	}
	engaged := 0
	for _, a := range articles {
		if a.Rated || a.ReadAt != nil || a.Bookmarked {
			engaged++
		}
	}
	return float64(engaged) / float64(len(articles))
}
