// Package store is the canonical place for persisted state: sources,
// articles, learned preferences and keyword tallies. It should not include
// any business logic, in particular no scoring; the recommendation engine
// owns every number it writes here.
package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/yifanzh/newscope/model"
	"github.com/yifanzh/newscope/utils"
)

// ErrDuplicateURL is returned by UpsertArticle when an article with the same
// canonical URL already exists. Callers treat it as a benign no-op.
var ErrDuplicateURL = errors.New("article with this url already exists")

// ErrNotFound is returned by lookups and row mutations targeting a missing id.
var ErrNotFound = errors.New("record not found")

// Store wraps the database behind the operations the rest of the system is
// allowed to perform.
//
// Writes are serialized through a single mutex: concurrent fetch tasks insert
// distinct rows but also race on shared aggregate counters (keyword usage,
// source ranking), and sqlite only tolerates one writer anyway. Reads run
// without the lock; each read is a single gorm query and therefore observes a
// consistent snapshot.
type Store struct {
	db *gorm.DB

	// guards all writes, the single logical writer of the system
	mu sync.Mutex
}

// Open connects to the sqlite database at path, creating and migrating it if
// needed.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if err := db.AutoMigrate(
		&model.Source{},
		&model.Article{},
		&model.UserPreference{},
		&model.KeywordStat{},
	); err != nil {
		return nil, errors.Wrap(err, "migrate database")
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ---------------------------------------------------------------------------
// Sources

func (s *Store) GetAllSources() ([]model.Source, error) {
	var sources []model.Source
	err := s.db.Order("created_at asc").Find(&sources).Error
	return sources, err
}

func (s *Store) GetActiveSources() ([]model.Source, error) {
	var sources []model.Source
	err := s.db.Where("active = ?", true).Order("created_at asc").Find(&sources).Error
	return sources, err
}

func (s *Store) GetSource(id string) (model.Source, error) {
	var source model.Source
	err := s.db.First(&source, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return source, ErrNotFound
	}
	return source, err
}

// UpsertSource creates the source if it has no id yet, otherwise updates it
// in place. New sources get the defaults from the data model: ranking 0.5,
// hourly fetch cadence.
func (s *Store) UpsertSource(source model.Source) (model.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if source.Id == "" {
		source.Id = uuid.New().String()
		source.CreatedAt = time.Now()
		if source.Ranking == 0 {
			source.Ranking = 0.5
		}
		if source.FetchIntervalMinutes == 0 {
			source.FetchIntervalMinutes = 60
		}
		if err := s.db.Create(&source).Error; err != nil {
			return source, errors.Wrap(err, "create source")
		}
		return source, nil
	}
	if err := s.db.Save(&source).Error; err != nil {
		return source, errors.Wrap(err, "update source")
	}
	return source, nil
}

// DeleteSource removes a source and cascades to its articles.
func (s *Store) DeleteSource(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("source_id = ?", id).Delete(&model.Article{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Source{}, "id = ?", id).Error
	})
}

// MarkSourceFetched advances the source's last-fetched timestamp.
func (s *Store) MarkSourceFetched(id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Model(&model.Source{}).Where("id = ?", id).
		Update("last_fetched_at", at).Error
}

// AdjustSourceRanking atomically applies delta to the source's quality
// ranking, clamped to [0,1].
func (s *Store) AdjustSourceRanking(id string, delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		var source model.Source
		if err := tx.First(&source, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		ranking := utils.Clamp(source.Ranking+delta, 0.0, 1.0)
		return tx.Model(&model.Source{}).Where("id = ?", id).
			Update("ranking", ranking).Error
	})
}

// SeedSources inserts the given sources only when the sources table is
// empty, so a first run starts with a usable catalog without clobbering user
// edits on later runs.
func (s *Store) SeedSources(sources []model.Source) error {
	var count int64
	if err := s.db.Model(&model.Source{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, source := range sources {
		if _, err := s.UpsertSource(source); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Articles

// UpsertArticle persists a new article. The canonical URL is the dedup key:
// inserting an article whose URL already exists returns ErrDuplicateURL and
// leaves the stored row untouched.
func (s *Store) UpsertArticle(article model.Article) (model.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing model.Article
	err := s.db.First(&existing, "url = ?", article.Url).Error
	if err == nil {
		return existing, ErrDuplicateURL
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return article, errors.Wrap(err, "lookup article by url")
	}

	if article.Id == "" {
		article.Id = uuid.New().String()
	}
	if article.FetchedAt.IsZero() {
		article.FetchedAt = time.Now()
	}
	if article.Relevance == 0 {
		article.Relevance = 0.5
	}
	article.Relevance = utils.Clamp(article.Relevance, 0.0, 1.0)
	if article.Sentiment != nil {
		clamped := utils.Clamp(*article.Sentiment, -1.0, 1.0)
		article.Sentiment = &clamped
	}
	if err := s.db.Create(&article).Error; err != nil {
		return article, errors.Wrap(err, "create article")
	}
	return article, nil
}

// RefreshArticleEnrichment merges regenerated enrichment fields into an
// existing row, keeping user state (rating, bookmark, read) intact.
func (s *Store) RefreshArticleEnrichment(id string, enriched model.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var article model.Article
	if err := s.db.First(&article, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	patch := model.Article{
		LlmSummary: enriched.LlmSummary,
		Keywords:   enriched.Keywords,
		Categories: enriched.Categories,
		Sentiment:  enriched.Sentiment,
	}
	if err := copier.CopyWithOption(&article, &patch, copier.Option{IgnoreEmpty: true}); err != nil {
		return errors.Wrap(err, "merge enrichment")
	}
	return s.db.Save(&article).Error
}

// ListArticles returns articles ordered by relevance, then recency.
func (s *Store) ListArticles(limit, offset int) ([]model.Article, error) {
	var articles []model.Article
	err := s.db.
		Order("relevance desc").
		Order("published_at desc").
		Limit(limit).Offset(offset).
		Find(&articles).Error
	return articles, err
}

// ListArticlesBySource returns a single source's articles, newest first.
func (s *Store) ListArticlesBySource(sourceId string, limit int) ([]model.Article, error) {
	var articles []model.Article
	err := s.db.Where("source_id = ?", sourceId).
		Order("published_at desc").Limit(limit).
		Find(&articles).Error
	return articles, err
}

// ListBookmarked returns bookmarked articles, newest first.
func (s *Store) ListBookmarked() ([]model.Article, error) {
	var articles []model.Article
	err := s.db.Where("bookmarked = ?", true).
		Order("published_at desc").
		Find(&articles).Error
	return articles, err
}

func (s *Store) GetArticle(id string) (model.Article, error) {
	var article model.Article
	err := s.db.First(&article, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return article, ErrNotFound
	}
	return article, err
}

func (s *Store) UpdateArticleRating(id string, rating model.Rating) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rowUpdate(id, map[string]interface{}{"rated": true, "rating": rating})
}

func (s *Store) ToggleBookmark(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var article model.Article
	if err := s.db.First(&article, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.db.Model(&model.Article{}).Where("id = ?", id).
		Update("bookmarked", !article.Bookmarked).Error
}

func (s *Store) MarkArticleRead(id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rowUpdate(id, map[string]interface{}{"read_at": at})
}

// UpdateArticleRelevance writes a recomputed relevance score, clamped to
// [0,1] so an out-of-range value can never be persisted.
func (s *Store) UpdateArticleRelevance(id string, relevance float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rowUpdate(id, map[string]interface{}{
		"relevance": utils.Clamp(relevance, 0.0, 1.0),
	})
}

func (s *Store) rowUpdate(id string, fields map[string]interface{}) error {
	res := s.db.Model(&model.Article{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Preferences and keyword tallies

func (s *Store) GetUserPreferences() ([]model.UserPreference, error) {
	var prefs []model.UserPreference
	err := s.db.Find(&prefs).Error
	return prefs, err
}

// UpsertUserPreference writes a learned preference, clamping weight and
// confidence so malformed values can never be persisted.
func (s *Store) UpsertUserPreference(pref model.UserPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pref.Weight = utils.Clamp(pref.Weight, -1.0, 1.0)
	pref.Confidence = utils.Clamp(pref.Confidence, 0.0, 1.0)
	pref.UpdatedAt = time.Now()
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "keyword"}},
		UpdateAll: true,
	}).Create(&pref).Error
}

func (s *Store) GetKeywordStats() ([]model.KeywordStat, error) {
	var stats []model.KeywordStat
	err := s.db.Find(&stats).Error
	return stats, err
}

// UpsertKeywordStat increments the usage tally for keyword, and the positive
// or negative tally depending on polarity. Creates the row on first use.
func (s *Store) UpsertKeywordStat(keyword string, positive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		var stat model.KeywordStat
		err := tx.First(&stat, "keyword = ?", keyword).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			stat = model.KeywordStat{Keyword: keyword}
		} else if err != nil {
			return err
		}
		stat.UsageCount++
		if positive {
			stat.PositiveCount++
		} else {
			stat.NegativeCount++
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "keyword"}},
			UpdateAll: true,
		}).Create(&stat).Error
	})
}
