package model

import (
	"time"
)

/*

UserPreference is the learned per-keyword affinity consumed by scoring.

Keyword: primary key, lowercased free text matching Article.Keywords entries
Weight: affinity in [-1,1], negative means disliked
Confidence: certainty in [0,1], grows monotonically with observations
UpdatedAt: time of the last feedback event touching this keyword
*/

type UserPreference struct {
	Keyword    string `gorm:"primaryKey"`
	Weight     float64
	Confidence float64
	UpdatedAt  time.Time
}

/*

KeywordStat is the raw per-keyword feedback tally.

Keyword: primary key
UsageCount: number of feedback events that touched this keyword
PositiveCount, NegativeCount: split of those events by polarity
*/

type KeywordStat struct {
	Keyword       string `gorm:"primaryKey"`
	UsageCount    int
	PositiveCount int
	NegativeCount int
}

// Score is the derived positive ratio, 0.5 for an unused keyword.
func (k KeywordStat) Score() float64 {
	if k.UsageCount == 0 {
		return 0.5
	}
	return float64(k.PositiveCount) / float64(k.UsageCount)
}
