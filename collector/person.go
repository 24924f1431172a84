package collector

import (
	"github.com/yifanzh/newscope/model"
)

// PersonFetcher tracks an individual's page (personal blog, publications
// list). It is the page scraper with a smaller cap, and every item is
// attributed to the tracked person.
type PersonFetcher struct {
	scraper *ScrapeFetcher
}

func NewPersonFetcher() *PersonFetcher {
	return &PersonFetcher{scraper: &ScrapeFetcher{Limit: MaxPersonItems}}
}

func (p *PersonFetcher) Fetch(source model.Source) ([]NormalizedItem, error) {
	items, err := p.scraper.Fetch(source)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Author == "" {
			items[i].Author = source.Name
		}
	}
	return items, nil
}
