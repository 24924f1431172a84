package collector

import (
	"github.com/pkg/errors"

	"github.com/yifanzh/newscope/model"
)

// FetcherBuilder hands out the fetcher matching a source's type tag. The
// type set is closed; an unknown tag is a configuration error.
type FetcherBuilder struct{}

func (FetcherBuilder) NewFeedFetcher() Fetcher      { return NewFeedFetcher() }
func (FetcherBuilder) NewScrapeFetcher() Fetcher    { return NewScrapeFetcher() }
func (FetcherBuilder) NewPersonFetcher() Fetcher    { return NewPersonFetcher() }
func (FetcherBuilder) NewBenchmarkFetcher() Fetcher { return NewBenchmarkFetcher() }

// ForSource dispatches on the source type.
func (b FetcherBuilder) ForSource(source model.Source) (Fetcher, error) {
	switch source.Type {
	case model.SourceTypeFeed:
		return b.NewFeedFetcher(), nil
	case model.SourceTypeWebsite:
		return b.NewScrapeFetcher(), nil
	case model.SourceTypePerson:
		return b.NewPersonFetcher(), nil
	case model.SourceTypeBenchmarkTracker:
		return b.NewBenchmarkFetcher(), nil
	default:
		return nil, errors.Errorf("unknown source type %q", source.Type)
	}
}
