package model

import (
	"time"
)

// Rating is the user's verdict on an article. Zero value means unrated.
type Rating int

const (
	RatingNegative Rating = -1
	RatingNeutral  Rating = 0
	RatingPositive Rating = 1
)

/*

Article is a single normalized, enriched news item tied to exactly one source.

Id: primary key, uuid string
SourceId: owning source, "belongs-to" relation

Title: item title in plain text
RawSummary: summary text as provided by the feed/page, may be empty
LlmSummary: nil until enrichment produced a generated summary; stays nil when
	the text-completion service was unavailable and only fallbacks ran
Url: canonical link. Unique index; this is the dedup key, repeated ingestion
	of the same URL is a no-op
ImageUrl, Author: best-effort, often empty
PublishedAt: nil when the origin did not carry a usable timestamp
FetchedAt: always set by the ingestion pipeline

Rated: whether the user has rated the article (distinguishes an explicit
	neutral rating from no rating at all)
Rating: negative/neutral/positive, meaningful only when Rated
Bookmarked: bookmark flag
ReadAt: nil until the article is opened

Keywords, Categories: ordered free-text lists, stored as JSON columns. There
	is deliberately no join table and no referential integrity; keywords are
	free text shared by convention with UserPreference and KeywordStat.
Sentiment: nil or a value in [-1,1]
Relevance: recommendation engine's current estimate in [0,1], default 0.5
*/

type Article struct {
	Id       string `gorm:"primaryKey"`
	SourceId string `gorm:"index"`

	Title      string
	RawSummary string
	LlmSummary *string
	Url        string `gorm:"uniqueIndex"`
	ImageUrl   string
	Author     string

	PublishedAt *time.Time
	FetchedAt   time.Time

	Rated      bool
	Rating     Rating
	Bookmarked bool
	ReadAt     *time.Time

	Keywords   []string `gorm:"serializer:json"`
	Categories []string `gorm:"serializer:json"`
	Sentiment  *float64
	Relevance  float64
}
