package model

import (
	"time"
)

// SourceType tags the fetch behavior for a source. It is a closed set:
// dispatch in the collector package switches over these values and treats
// anything else as a configuration error.
type SourceType string

const (
	SourceTypeFeed             SourceType = "feed"
	SourceTypeWebsite          SourceType = "website"
	SourceTypePerson           SourceType = "person"
	SourceTypeBenchmarkTracker SourceType = "benchmarkTracker"
)

/*

Source is a data model for a configured origin of articles.

Example: an RSS feed, a scraped lab blog, a tracked researcher's page, a
benchmark leaderboard.

Id: primary key, uuid string
CreatedAt: time when entity is created

Name: display name, for example "Hacker News"
Type: fetch behavior tag, one of SourceType
Url: primary URL of the source (site root for scraped sources)
FeedUrl: syndication endpoint when distinct from Url, empty if none
Active: inactive sources are skipped by the refresh cycle
Ranking: learned quality in [0,1], starts at 0.5, mutated only by the
	recommendation engine through Store.AdjustSourceRanking
LastFetchedAt: nil until the first successful fetch
FetchIntervalMinutes: refresh cadence, default 60

Articles: articles collected from this source, "has-many" relation. Deleting
a source cascades to its articles.
*/

type Source struct {
	Id                   string `gorm:"primaryKey"`
	CreatedAt            time.Time
	Name                 string
	Type                 SourceType
	Url                  string
	FeedUrl              string
	Active               bool
	Ranking              float64
	LastFetchedAt        *time.Time
	FetchIntervalMinutes int

	Articles []Article `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
