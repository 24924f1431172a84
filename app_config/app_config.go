// Package app_config holds the YAML application config: the seeded source
// catalog, the enrichment provider selection and the engine tunables.
// Credentials never live here; they come from the environment (utils/dotenv).
package app_config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/yifanzh/newscope/llm"
	"github.com/yifanzh/newscope/model"
)

type SeedSource struct {
	Name                 string           `yaml:"name"`
	Type                 model.SourceType `yaml:"type"`
	Url                  string           `yaml:"url"`
	FeedUrl              string           `yaml:"feed_url"`
	FetchIntervalMinutes int              `yaml:"fetch_interval_minutes"`
}

type AppConfig struct {
	// sqlite database path
	DatabasePath string `yaml:"database_path"`

	// sources seeded on first run only
	SeedSources []SeedSource `yaml:"seed_sources"`

	// text-completion provider selection and endpoints
	Llm llm.Config `yaml:"llm"`

	// initial exploration probability, defaulted by the engine when zero
	ExplorationRate float64 `yaml:"exploration_rate"`
}

// ParseAppConfig reads and validates the YAML config at path.
func ParseAppConfig(path string) (AppConfig, error) {
	c := AppConfig{}
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, errors.Wrapf(err, "parse config %s", path)
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "newscope.db"
	}
	return c, nil
}

// SeededSources converts the seed entries to model sources, all active.
func (c AppConfig) SeededSources() []model.Source {
	sources := make([]model.Source, 0, len(c.SeedSources))
	for _, seed := range c.SeedSources {
		sources = append(sources, model.Source{
			Name:                 seed.Name,
			Type:                 seed.Type,
			Url:                  seed.Url,
			FeedUrl:              seed.FeedUrl,
			Active:               true,
			FetchIntervalMinutes: seed.FetchIntervalMinutes,
		})
	}
	return sources
}
