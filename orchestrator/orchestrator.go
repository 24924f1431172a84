// Package orchestrator runs the refresh cycle: it fans one fetch task out
// per active source, funnels every collected item through the ingest bus to
// a single writer, enriches and persists them, then re-scores the working
// set. A refresh always completes; individual source or enrichment failures
// are absorbed and logged.
package orchestrator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yifanzh/newscope/collector"
	"github.com/yifanzh/newscope/enrich"
	"github.com/yifanzh/newscope/model"
	"github.com/yifanzh/newscope/recommend"
	"github.com/yifanzh/newscope/store"
	Logger "github.com/yifanzh/newscope/utils/log"
)

const (
	collectedTopic = "article.collected"

	// size of the working set re-scored after a refresh
	rescoreWindow = 200
)

// collectedItem is the bus payload: one normalized item plus enough source
// context for the writer to enrich and persist it.
type collectedItem struct {
	SourceId   string                   `json:"source_id"`
	SourceType model.SourceType         `json:"source_type"`
	Item       collector.NormalizedItem `json:"item"`
}

// Orchestrator owns the refresh cycle and the write-side of the ingest bus.
//
// Fetch tasks run concurrently and share no state; they publish onto the
// bus, and exactly one writer goroutine consumes it, which keeps every
// database write serialized (on top of the store's own lock) and in one
// place.
type Orchestrator struct {
	store     *store.Store
	engine    *recommend.Engine
	extractor *enrich.Extractor
	builder   collector.FetcherBuilder

	bus  *gochannel.GoChannel
	cron *cron.Cron

	// tracks published-but-not-yet-persisted items so Refresh can join on
	// the writer having drained its own cycle
	inFlight sync.WaitGroup

	closeOnce sync.Once
}

func New(s *store.Store, engine *recommend.Engine, extractor *enrich.Extractor) (*Orchestrator, error) {
	o := &Orchestrator{
		store:     s,
		engine:    engine,
		extractor: extractor,
		bus:       gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{}),
		cron:      cron.New(),
	}

	messages, err := o.bus.Subscribe(context.Background(), collectedTopic)
	if err != nil {
		return nil, errors.Wrap(err, "subscribe to ingest bus")
	}
	go o.runWriter(messages)

	return o, nil
}

// Close stops the cron loop and the ingest bus.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.cron.Stop()
		o.bus.Close()
	})
}

// StartPeriodicRefresh checks source cadences every minute and refreshes the
// sources that are due. Refresh stays callable directly for a forced pass.
func (o *Orchestrator) StartPeriodicRefresh() error {
	_, err := o.cron.AddFunc("@every 1m", func() {
		if err := o.refresh(false); err != nil {
			Logger.Log.Error("periodic refresh: ", err)
		}
	})
	if err != nil {
		return errors.Wrap(err, "schedule refresh")
	}
	o.cron.Start()
	return nil
}

// Refresh fetches every active source regardless of cadence, waits for all
// fetch tasks and all resulting writes to finish, then re-scores the working
// set. Only a storage failure is surfaced; per-source and per-enrichment
// failures degrade data, not the call.
func (o *Orchestrator) Refresh() error {
	return o.refresh(true)
}

func (o *Orchestrator) refresh(force bool) error {
	sources, err := o.store.GetActiveSources()
	if err != nil {
		return errors.Wrap(err, "list active sources")
	}

	var wg sync.WaitGroup
	for i := range sources {
		source := sources[i]
		if !force && !isDue(source, time.Now()) {
			continue
		}
		// benchmark trackers fan out here too: peers of the feed and
		// scrape tasks, not a sequential follow-up
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.fetchSource(source)
		}()
	}
	wg.Wait()

	// barrier: every published item has been persisted (or dropped)
	o.inFlight.Wait()

	return o.rescore()
}

// fetchSource runs one fetch task. Any failure is logged and absorbed; the
// source simply contributes zero items this cycle and its last-fetched
// timestamp does not advance.
func (o *Orchestrator) fetchSource(source model.Source) {
	fetcher, err := o.builder.ForSource(source)
	if err != nil {
		Logger.Log.WithFields(logrus.Fields{"source": source.Name}).Error("no fetcher: ", err)
		return
	}

	items, err := fetcher.Fetch(source)
	if err != nil {
		Logger.Log.WithFields(logrus.Fields{"source": source.Name}).Error("fetch failed: ", err)
		return
	}

	for _, item := range items {
		payload, err := json.Marshal(collectedItem{
			SourceId:   source.Id,
			SourceType: source.Type,
			Item:       item,
		})
		if err != nil {
			Logger.Log.WithFields(logrus.Fields{"source": source.Name}).Error("marshal item: ", err)
			continue
		}
		o.inFlight.Add(1)
		if err := o.bus.Publish(collectedTopic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
			o.inFlight.Done()
			Logger.Log.WithFields(logrus.Fields{"source": source.Name}).Error("publish item: ", err)
		}
	}

	if err := o.store.MarkSourceFetched(source.Id, time.Now()); err != nil {
		Logger.Log.WithFields(logrus.Fields{"source": source.Name}).Error("mark fetched: ", err)
	}

	Logger.Log.WithFields(logrus.Fields{"source": source.Name}).
		Infof("fetched %d items", len(items))
}

// runWriter is the single consumer of the ingest bus.
func (o *Orchestrator) runWriter(messages <-chan *message.Message) {
	for msg := range messages {
		var item collectedItem
		if err := json.Unmarshal(msg.Payload, &item); err != nil {
			Logger.Log.Error("decode collected item: ", err)
		} else {
			o.persistItem(item)
		}
		msg.Ack()
		o.inFlight.Done()
	}
}

func (o *Orchestrator) persistItem(c collectedItem) {
	body := c.Item.SummaryText
	if body == "" && (c.SourceType == model.SourceTypeWebsite || c.SourceType == model.SourceTypePerson) {
		// scraped listings often carry no text; pull the article page
		if text, err := collector.ExtractReadableText(c.Item.Url); err == nil {
			body = text
		}
	}

	enrichment := o.extractor.Extract(context.Background(), c.Item.Title, body)

	article := model.Article{
		SourceId:    c.SourceId,
		Title:       c.Item.Title,
		RawSummary:  c.Item.SummaryText,
		LlmSummary:  enrichment.LlmSummary,
		Url:         c.Item.Url,
		ImageUrl:    c.Item.ImageUrl,
		Author:      c.Item.Author,
		PublishedAt: c.Item.PublishedAt,
		FetchedAt:   time.Now(),
		Keywords:    enrichment.Keywords,
		Categories:  enrichment.Categories,
		Sentiment:   enrichment.Sentiment,
	}

	existing, err := o.store.UpsertArticle(article)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateURL) {
			// expected across cycles, the URL is the dedup key; a refetch
			// still matters when it carries enrichment the stored row never
			// got, e.g. the completion service was down on the first pass
			if existing.LlmSummary == nil && enrichment.LlmSummary != nil {
				if err := o.store.RefreshArticleEnrichment(existing.Id, article); err != nil {
					Logger.Log.Error("refresh enrichment: ", err)
				}
				return
			}
			Logger.Log.Debug("skipping duplicate article: ", article.Url)
			return
		}
		Logger.Log.Error("persist article: ", err)
	}
}

// rescore ranks the working set and persists the fresh relevance scores.
func (o *Orchestrator) rescore() error {
	articles, err := o.store.ListArticles(rescoreWindow, 0)
	if err != nil {
		return errors.Wrap(err, "list articles for rescore")
	}
	ranked, err := o.engine.Rank(articles)
	if err != nil {
		return errors.Wrap(err, "rank articles")
	}
	for _, article := range ranked {
		if err := o.store.UpdateArticleRelevance(article.Id, article.Relevance); err != nil {
			Logger.Log.Error("persist relevance: ", err)
		}
	}
	return nil
}

// RankedFeed returns the current working set, best-first. Ordering is
// non-deterministic across calls (see recommend.Engine.Rank).
func (o *Orchestrator) RankedFeed(limit int) ([]model.Article, error) {
	if limit <= 0 || limit > rescoreWindow {
		limit = rescoreWindow
	}
	articles, err := o.store.ListArticles(limit, 0)
	if err != nil {
		return nil, err
	}
	return o.engine.Rank(articles)
}

// ProcessFeedback records a thumbs up/down on an article and folds it into
// the learned state.
func (o *Orchestrator) ProcessFeedback(articleId string, positive bool) error {
	article, err := o.store.GetArticle(articleId)
	if err != nil {
		return err
	}

	rating := model.RatingPositive
	if !positive {
		rating = model.RatingNegative
	}
	if err := o.store.UpdateArticleRating(articleId, rating); err != nil {
		return err
	}
	return o.engine.Feedback(article, positive)
}

// DiversityReport computes the advisory diversity score and status over the
// working set.
func (o *Orchestrator) DiversityReport() (float64, string, error) {
	articles, err := o.store.ListArticles(rescoreWindow, 0)
	if err != nil {
		return 0, "", err
	}
	score := recommend.Diversity(articles)
	return score, recommend.DiversityStatus(score), nil
}

// AdaptFromEngagement derives the engagement rate over the working set and
// feeds it to the engine's exploration-rate adaptation. Callers compose this
// with DiversityReport as they see fit; the two signals stay independent.
func (o *Orchestrator) AdaptFromEngagement() error {
	articles, err := o.store.ListArticles(rescoreWindow, 0)
	if err != nil {
		return err
	}
	o.engine.AdaptExplorationRate(recommend.EngagementRate(articles))
	return nil
}

func isDue(source model.Source, now time.Time) bool {
	if source.LastFetchedAt == nil {
		return true
	}
	interval := time.Duration(source.FetchIntervalMinutes) * time.Minute
	return now.Sub(*source.LastFetchedAt) >= interval
}
