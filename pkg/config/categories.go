package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"knowthepast/pkg/model"
)

// CategoriesConfig holds the dock categories and the discovery denylist.
type CategoriesConfig struct {
	Categories []model.Category `yaml:"categories"`
	// Avoid lists overused places the generator should never suggest.
	Avoid []string `yaml:"avoid"`

	lookup map[string]model.Category
}

// DefaultCategories returns the built-in category set.
func DefaultCategories() *CategoriesConfig {
	c := &CategoriesConfig{
		Categories: []model.Category{
			{Key: "ancient", Name: "Ancient", Emoji: "🏛️"},
			{Key: "nature", Name: "Nature", Emoji: "🌳"},
			{Key: "growth", Name: "Growth", Emoji: "📈"},
			{Key: "time", Name: "Time", Emoji: "⏳"},
		},
		Avoid: []string{
			"Machu Picchu",
			"Colosseum",
			"Stonehenge",
			"Pyramids of Giza",
			"Great Wall of China",
			"Grand Canyon",
			"Eiffel Tower",
			"Petra",
		},
	}
	c.buildLookup()
	return c
}

// LoadCategories loads categories from a YAML file. A missing file yields the defaults.
func LoadCategories(path string) (*CategoriesConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultCategories(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read categories file: %w", err)
	}

	var cfg CategoriesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse categories file: %w", err)
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = DefaultCategories().Categories
	}

	for i := range cfg.Categories {
		cfg.Categories[i].Key = strings.ToLower(strings.TrimSpace(cfg.Categories[i].Key))
		if cfg.Categories[i].Key == "" {
			return nil, fmt.Errorf("category %d has no key", i)
		}
	}
	cfg.buildLookup()
	return &cfg, nil
}

func (c *CategoriesConfig) buildLookup() {
	c.lookup = make(map[string]model.Category, len(c.Categories))
	for _, cat := range c.Categories {
		c.lookup[cat.Key] = cat
	}
}

// Lookup returns the category for key (case-insensitive).
func (c *CategoriesConfig) Lookup(key string) (model.Category, bool) {
	cat, ok := c.lookup[strings.ToLower(strings.TrimSpace(key))]
	return cat, ok
}
